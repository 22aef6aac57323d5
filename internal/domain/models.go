package domain

import (
	"fmt"
	"image"
	"time"
)

// PlayerStatus represents the current state of the media player
type PlayerStatus string

const (
	// StatusPlaying indicates the media is currently playing
	StatusPlaying PlayerStatus = "Playing"
	// StatusPaused indicates the media is paused
	StatusPaused PlayerStatus = "Paused"
	// StatusStopped indicates the media is stopped
	StatusStopped PlayerStatus = "Stopped"
)

// NowPlaying is a snapshot of what the active media player is playing
type NowPlaying struct {
	// Player is the well-known bus name of the player (org.mpris.MediaPlayer2.spotify)
	Player string
	// Title of the current track
	Title string
	// Artists of the current track, in player order
	Artists []string
	// Album name
	Album string
	// ArtUrl is the URL or local path to the album artwork
	ArtUrl string
	// Status is the current playback status
	Status PlayerStatus
	// Position is the playback offset into the track
	Position time.Duration
	// Length is the track duration, zero when the player does not report it
	Length time.Duration
	// Thumbnail is the path of the rendered artwork, filled in by the engine
	Thumbnail string
}

// SameTrack reports whether both snapshots describe the same track in the same state.
// Position and Thumbnail are ignored.
func (n NowPlaying) SameTrack(o NowPlaying) bool {
	if n.Player != o.Player || n.Title != o.Title || n.Album != o.Album ||
		n.ArtUrl != o.ArtUrl || n.Status != o.Status || n.Length != o.Length {
		return false
	}
	if len(n.Artists) != len(o.Artists) {
		return false
	}
	for i := range n.Artists {
		if n.Artists[i] != o.Artists[i] {
			return false
		}
	}
	return true
}

// ScreenResolution holds the display dimensions
type ScreenResolution struct {
	Width  int
	Height int
}

func (r ScreenResolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Matches reports whether the image bounds have exactly this size
func (r ScreenResolution) Matches(b image.Rectangle) bool {
	return b.Dx() == r.Width && b.Dy() == r.Height
}

// Limits applied to RecordingConfig fields
const (
	MinFrameRate = 1
	MaxFrameRate = 120
	MinQuality   = 1
	MaxQuality   = 100
)

// RecordingConfig describes how a recording session writes its video.
// A session copies it at start; later changes apply to the next session only.
type RecordingConfig struct {
	// OutputPath is the video file written by the session
	OutputPath string
	// Resolution of every encoded frame
	Resolution ScreenResolution
	// FrameRate in Hz, also baked into the container header
	FrameRate int
	// Quality is the JPEG quality (1-100) of each encoded frame
	Quality int
}

// Validate checks the field ranges. The returned error wraps ErrInvalidConfig.
func (c RecordingConfig) Validate() error {
	switch {
	case c.OutputPath == "":
		return fmt.Errorf("%w: output path is empty", ErrInvalidConfig)
	case c.Resolution.Width <= 0 || c.Resolution.Height <= 0:
		return fmt.Errorf("%w: resolution %s must be positive", ErrInvalidConfig, c.Resolution)
	case c.FrameRate < MinFrameRate || c.FrameRate > MaxFrameRate:
		return fmt.Errorf("%w: frame rate %d outside %d-%d", ErrInvalidConfig, c.FrameRate, MinFrameRate, MaxFrameRate)
	case c.Quality < MinQuality || c.Quality > MaxQuality:
		return fmt.Errorf("%w: quality %d outside %d-%d", ErrInvalidConfig, c.Quality, MinQuality, MaxQuality)
	}
	return nil
}

// Period is the delay between the end of one capture and the start of the next
func (c RecordingConfig) Period() time.Duration {
	if c.FrameRate <= 0 {
		return time.Second
	}
	return time.Second / time.Duration(c.FrameRate)
}

// Frame is one captured screen image. Seq starts at 1 for every session.
type Frame struct {
	Seq        uint64
	Image      image.Image
	CapturedAt time.Time
}

// RecorderState is the state of the recording session controller
type RecorderState string

const (
	StateIdle      RecorderState = "Idle"
	StateRecording RecorderState = "Recording"
	StateStopping  RecorderState = "Stopping"
)

// SessionInfo describes a recording session
type SessionInfo struct {
	ID        string
	Config    RecordingConfig
	StartedAt time.Time
	Frames    uint64
}

// SessionEvent is emitted once when a recording session ends.
// Err is nil when the session was stopped normally.
type SessionEvent struct {
	SessionInfo
	EndedAt time.Time
	Err     error
}
