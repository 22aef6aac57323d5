package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/genricoloni/overlay/internal/domain"
	"github.com/genricoloni/overlay/internal/sink"
	"go.uber.org/zap"
)

const defaultDebounce = 500 * time.Millisecond

// Engine wires the background pipelines of the daemon together.
// It keeps the now-playing snapshot (with album art thumbnail) current and
// turns finished recording sessions into desktop notifications.
type Engine struct {
	logger   *zap.Logger
	monitor  domain.Monitor
	fetcher  domain.Fetcher
	thumbs   domain.Thumbnailer
	recorder domain.Recorder
	notifier domain.Notifier

	debounce time.Duration
	probe    func(path string) (sink.Info, error)

	mu        sync.RWMutex
	current   domain.NowPlaying
	artURL    string // URL the current thumbnail was rendered from
	thumbnail string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine creates a new orchestration engine
func NewEngine(
	logger *zap.Logger,
	mon domain.Monitor,
	fetch domain.Fetcher,
	thumbs domain.Thumbnailer,
	rec domain.Recorder,
	notifier domain.Notifier,
) *Engine {
	return &Engine{
		logger:   logger,
		monitor:  mon,
		fetcher:  fetch,
		thumbs:   thumbs,
		recorder: rec,
		notifier: notifier,
		debounce: defaultDebounce,
		probe:    sink.Probe,
		current:  domain.NowPlaying{Status: domain.StatusStopped},
	}
}

// Start launches the event loops in goroutines and returns immediately.
// The loops run until Stop is called.
func (e *Engine) Start(ctx context.Context) error {
	e.logger.Info("Engine starting...")

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel

	e.wg.Add(2)
	go e.runLoop(loopCtx)
	go e.sessionLoop(loopCtx)
	return nil
}

// Stop ends both loops, then reports sessions the recorder finalized during
// shutdown. The last thumbnail stays on disk.
func (e *Engine) Stop(ctx context.Context) error {
	e.logger.Info("Engine stopping...")
	if e.cancel != nil {
		e.cancel()
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	e.drainSessions(ctx)
	return nil
}

// NowPlaying returns the latest snapshot, with Thumbnail set when art is available
func (e *Engine) NowPlaying() domain.NowPlaying {
	e.mu.RLock()
	defer e.mu.RUnlock()
	np := e.current
	np.Artists = append([]string(nil), e.current.Artists...)
	return np
}

// runLoop keeps the snapshot current and refreshes artwork with debouncing.
// Debouncing avoids fetching art for every track while the user skips quickly.
func (e *Engine) runLoop(ctx context.Context) {
	defer e.wg.Done()

	events := e.monitor.Events()

	timer := time.NewTimer(e.debounce)
	timer.Stop() // Start with stopped timer

	var pending *domain.NowPlaying

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Engine loop stopped")
			return

		case np, ok := <-events:
			if !ok {
				e.logger.Info("Monitor events channel closed")
				return
			}
			e.update(np)

			e.logger.Debug("Event received, debouncing...",
				zap.String("title", np.Title),
				zap.Strings("artists", np.Artists))

			pending = &np
			timer.Reset(e.debounce)

		case <-timer.C:
			if pending != nil {
				e.refreshArtwork(ctx, *pending)
				pending = nil
			}
		}
	}
}

// update stores np immediately, keeping the thumbnail while the art is unchanged
func (e *Engine) update(np domain.NowPlaying) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if np.ArtUrl == e.artURL {
		np.Thumbnail = e.thumbnail
	}
	e.current = np
}

// refreshArtwork renders a new thumbnail when the art URL changed
func (e *Engine) refreshArtwork(ctx context.Context, np domain.NowPlaying) {
	e.mu.RLock()
	unchanged := np.ArtUrl == e.artURL
	e.mu.RUnlock()
	if unchanged {
		return
	}

	if np.ArtUrl == "" {
		e.logger.Debug("No artwork URL, clearing thumbnail", zap.String("track", np.Title))
		e.setThumbnail("", "")
		return
	}

	e.logger.Info("Refreshing album art",
		zap.String("track", np.Title),
		zap.String("album", np.Album))

	imgData, err := e.fetcher.Fetch(ctx, np.ArtUrl)
	if err != nil {
		e.logger.Error("Failed to fetch artwork", zap.String("url", np.ArtUrl), zap.Error(err))
		e.setThumbnail(np.ArtUrl, "")
		return
	}

	path, err := e.thumbs.Render(ctx, imgData)
	if err != nil {
		e.logger.Error("Failed to render thumbnail", zap.Error(err))
		e.setThumbnail(np.ArtUrl, "")
		return
	}

	e.setThumbnail(np.ArtUrl, path)
}

func (e *Engine) setThumbnail(artURL, path string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.artURL = artURL
	e.thumbnail = path
	if e.current.ArtUrl == artURL {
		e.current.Thumbnail = path
	}
}

// sessionLoop reports every finished recording session to the user
func (e *Engine) sessionLoop(ctx context.Context) {
	defer e.wg.Done()

	events := e.recorder.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			e.reportSession(ctx, ev)
		}
	}
}

// drainSessions reports the session events already buffered, without waiting for more
func (e *Engine) drainSessions(ctx context.Context) {
	events := e.recorder.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			e.reportSession(ctx, ev)
		default:
			return
		}
	}
}

func (e *Engine) reportSession(ctx context.Context, ev domain.SessionEvent) {
	title := "Recording saved"
	body := fmt.Sprintf("%s (%d frames)", ev.Config.OutputPath, ev.Frames)

	if ev.Err != nil {
		title = "Recording failed"
		body = ev.Err.Error()
	} else if info, err := e.probe(ev.Config.OutputPath); err != nil {
		e.logger.Warn("Recorded file could not be verified",
			zap.String("path", ev.Config.OutputPath),
			zap.Error(err))
	} else if !info.Finalized || uint64(info.Frames) != ev.Frames {
		e.logger.Warn("Recorded file is incomplete",
			zap.String("path", ev.Config.OutputPath),
			zap.Uint32("file_frames", info.Frames),
			zap.Uint64("session_frames", ev.Frames),
			zap.Bool("finalized", info.Finalized))
	} else {
		e.logger.Debug("Recorded file verified",
			zap.String("path", ev.Config.OutputPath),
			zap.Int("width", info.Width),
			zap.Int("height", info.Height),
			zap.Uint32("frames", info.Frames))
	}

	if err := e.notifier.Notify(ctx, title, body); err != nil {
		e.logger.Warn("Failed to show notification", zap.Error(err))
	}
}
