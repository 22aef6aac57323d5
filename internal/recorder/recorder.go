package recorder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/genricoloni/overlay/internal/clock"
	"github.com/genricoloni/overlay/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const eventBufferSize = 8

// Recorder is the recording session controller.
//
// State machine: Idle -> Recording on Start, Recording -> Stopping -> Idle on
// Stop or when a capture/write step fails. Every session owns its sink
// exclusively and closes it exactly once from a deferred block in the session
// goroutine, so the file is finalized on every exit path.
type Recorder struct {
	logger    *zap.Logger
	settings  domain.SettingsStore
	source    domain.FrameSource
	opener    domain.SinkOpener
	clock     clock.Clock
	scheduler *Scheduler

	mu      sync.Mutex
	state   domain.RecorderState
	session *session

	events          chan domain.SessionEvent
	lastDropWarning time.Time
}

// session is one Start-to-finalize lifecycle
type session struct {
	info   domain.SessionInfo
	sink   domain.Sink
	cancel context.CancelFunc
	done   chan struct{}

	// closeErr is written before done is closed
	closeErr error
}

// NewRecorder creates an idle recorder
func NewRecorder(
	logger *zap.Logger,
	settings domain.SettingsStore,
	source domain.FrameSource,
	opener domain.SinkOpener,
	clk clock.Clock,
) *Recorder {
	return &Recorder{
		logger:    logger,
		settings:  settings,
		source:    source,
		opener:    opener,
		clock:     clk,
		scheduler: NewScheduler(clk),
		state:     domain.StateIdle,
		events:    make(chan domain.SessionEvent, eventBufferSize),
	}
}

// Start opens the sink with a snapshot of the current settings and starts
// capturing. It returns ErrAlreadyRecording if a session is active (including
// one that is still finalizing) and leaves the recorder Idle if the sink
// cannot be opened.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != domain.StateIdle {
		return fmt.Errorf("%w (state %s)", domain.ErrAlreadyRecording, r.state)
	}

	cfg := r.settings.Get()
	sink, err := r.opener.Open(cfg)
	if err != nil {
		r.logger.Error("Failed to open recording sink",
			zap.String("path", cfg.OutputPath),
			zap.Error(err))
		return err
	}

	// The session outlives the caller's context; only Stop or a failing step ends it.
	sessCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sess := &session{
		info: domain.SessionInfo{
			ID:        uuid.New().String(),
			Config:    cfg,
			StartedAt: r.clock.Now(),
		},
		sink:   sink,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	r.session = sess
	r.state = domain.StateRecording

	r.logger.Info("Recording started",
		zap.String("session", sess.info.ID),
		zap.String("path", cfg.OutputPath),
		zap.Stringer("resolution", cfg.Resolution),
		zap.Int("fps", cfg.FrameRate),
		zap.Int("quality", cfg.Quality))

	go r.run(sessCtx, sess)
	return nil
}

// Stop ends the active session and waits until its file is finalized.
// It is a no-op when Idle and safe to call concurrently. The returned error
// is the sink's close error, if any. If ctx ends first, Stop returns ctx.Err()
// and finalization completes in the background.
func (r *Recorder) Stop(ctx context.Context) error {
	r.mu.Lock()
	sess := r.session
	if sess != nil && r.state == domain.StateRecording {
		r.state = domain.StateStopping
	}
	r.mu.Unlock()

	if sess == nil {
		return nil
	}

	sess.cancel()

	select {
	case <-sess.done:
		return sess.closeErr
	case <-ctx.Done():
		r.logger.Warn("Stop timed out waiting for recording to finalize",
			zap.String("session", sess.info.ID))
		return ctx.Err()
	}
}

// Toggle starts a session when Idle and stops the active one otherwise.
// It returns the state after the call.
func (r *Recorder) Toggle(ctx context.Context) (domain.RecorderState, error) {
	if r.State() == domain.StateIdle {
		if err := r.Start(ctx); err != nil {
			return r.State(), err
		}
		return r.State(), nil
	}
	err := r.Stop(ctx)
	return r.State(), err
}

// State returns the current controller state
func (r *Recorder) State() domain.RecorderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Current returns a snapshot of the active session
func (r *Recorder) Current() (domain.SessionInfo, bool) {
	r.mu.Lock()
	sess := r.session
	r.mu.Unlock()

	if sess == nil {
		return domain.SessionInfo{}, false
	}
	info := sess.info
	info.Frames = sess.sink.Frames()
	return info, true
}

// Events returns the channel of terminal session events
func (r *Recorder) Events() <-chan domain.SessionEvent {
	return r.events
}

// run drives the capture loop for one session and always finalizes it
func (r *Recorder) run(ctx context.Context, sess *session) {
	var stepErr error
	defer func() {
		r.finalize(sess, stepErr)
	}()

	var seq uint64
	res := sess.info.Config.Resolution

	stepErr = r.scheduler.Run(ctx, sess.info.Config.Period(), func() error {
		frame, err := r.source.Capture(res)
		if err != nil {
			return fmt.Errorf("tick %d: %w", seq+1, err)
		}
		seq++
		frame.Seq = seq
		if err := sess.sink.WriteFrame(frame); err != nil {
			return fmt.Errorf("tick %d: %w", seq, err)
		}
		return nil
	})
}

// finalize closes the sink, returns the recorder to Idle and emits the
// session's terminal event
func (r *Recorder) finalize(sess *session, stepErr error) {
	r.mu.Lock()
	r.state = domain.StateStopping
	r.mu.Unlock()

	sess.cancel()
	closeErr := sess.sink.Close()

	event := domain.SessionEvent{
		SessionInfo: sess.info,
		EndedAt:     r.clock.Now(),
		Err:         multierr.Combine(stepErr, closeErr),
	}
	event.Frames = sess.sink.Frames()

	sess.closeErr = closeErr

	r.mu.Lock()
	r.session = nil
	r.state = domain.StateIdle
	r.mu.Unlock()

	close(sess.done)

	if event.Err != nil {
		r.logger.Error("Recording ended with error",
			zap.String("session", event.ID),
			zap.String("path", event.Config.OutputPath),
			zap.Uint64("frames", event.Frames),
			zap.Error(event.Err))
	} else {
		r.logger.Info("Recording stopped",
			zap.String("session", event.ID),
			zap.String("path", event.Config.OutputPath),
			zap.Uint64("frames", event.Frames),
			zap.Duration("duration", event.EndedAt.Sub(event.StartedAt)))
	}

	r.emit(event)
}

// emit delivers the event without blocking; a full buffer drops it
func (r *Recorder) emit(event domain.SessionEvent) {
	select {
	case r.events <- event:
	default:
		r.logEventDropWarning()
	}
}

// logEventDropWarning is rate-limited to avoid log spam when nobody drains Events
func (r *Recorder) logEventDropWarning() {
	r.mu.Lock()
	defer r.mu.Unlock()

	const warningInterval = 5 * time.Second
	now := r.clock.Now()

	if now.Sub(r.lastDropWarning) >= warningInterval {
		r.logger.Warn("Session events channel full, dropping event")
		r.lastDropWarning = now
	}
}
