package domain

import "errors"

var (
	// ErrCaptureUnavailable is returned when no display surface can be read
	ErrCaptureUnavailable = errors.New("capture unavailable")

	// ErrSinkOpen is returned when the video file or encoder cannot be initialized
	ErrSinkOpen = errors.New("sink open failed")

	// ErrSinkClosed is returned by WriteFrame after Close
	ErrSinkClosed = errors.New("sink closed")

	// ErrAlreadyRecording is returned by Start while a session is active
	ErrAlreadyRecording = errors.New("already recording")

	// ErrInvalidConfig is returned for out-of-range recording settings
	ErrInvalidConfig = errors.New("invalid recording config")

	// ErrFrameMismatch is returned when a frame does not match the sink resolution
	ErrFrameMismatch = errors.New("frame size mismatch")

	// ErrFrameOrder is returned when a frame sequence number does not increase
	ErrFrameOrder = errors.New("frame out of order")

	// ErrPlayerUnavailable is returned by player controls when no MPRIS player is on the bus
	ErrPlayerUnavailable = errors.New("no media player available")
)
