package recorder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/genricoloni/overlay/internal/domain"
)

// stepClock only lets a Wait finish when the test calls advance
type stepClock struct {
	mu      sync.Mutex
	now     time.Time
	periods []time.Duration
	ticks   chan struct{}
}

func newStepClock() *stepClock {
	return &stepClock{
		now:   time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC),
		ticks: make(chan struct{}),
	}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Wait(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.periods = append(c.periods, d)
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ticks:
		c.mu.Lock()
		c.now = c.now.Add(d)
		c.mu.Unlock()
		return nil
	}
}

// advance releases one pending Wait, blocking until the scheduler is waiting
func (c *stepClock) advance(t *testing.T) {
	t.Helper()
	select {
	case c.ticks <- struct{}{}:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler never waited for the next tick")
	}
}

func (c *stepClock) waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.periods...)
}

// staticSource returns the same image for every capture
type staticSource struct {
	mu    sync.Mutex
	img   image.Image
	calls int
}

func newStaticSource(w, h int) *staticSource {
	return &staticSource{img: image.NewRGBA(image.Rect(0, 0, w, h))}
}

func (s *staticSource) Capture(res domain.ScreenResolution) (domain.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if !res.Matches(s.img.Bounds()) {
		return domain.Frame{}, fmt.Errorf("test source only produces %v", s.img.Bounds())
	}
	return domain.Frame{Image: s.img}, nil
}

// memorySink keeps frames in memory and counts Close calls
type memorySink struct {
	mu         sync.Mutex
	seqs       []uint64
	closes     int
	closed     bool
	failAtSeq  uint64
	closeErr   error
	writeDelay time.Duration
}

func (s *memorySink) WriteFrame(frame domain.Frame) error {
	if s.writeDelay > 0 {
		time.Sleep(s.writeDelay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSinkClosed
	}
	if n := len(s.seqs); n > 0 && frame.Seq <= s.seqs[n-1] {
		return domain.ErrFrameOrder
	}
	if s.failAtSeq != 0 && frame.Seq == s.failAtSeq {
		return errors.New("disk full")
	}
	s.seqs = append(s.seqs, frame.Seq)
	return nil
}

func (s *memorySink) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(len(s.seqs))
}

func (s *memorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	if s.closed {
		return nil
	}
	s.closed = true
	return s.closeErr
}

func (s *memorySink) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// memoryOpener hands out memorySinks and records the configurations it saw
type memoryOpener struct {
	mu      sync.Mutex
	sinks   []*memorySink
	configs []domain.RecordingConfig
	prepare func(s *memorySink)
	err     error
}

func (o *memoryOpener) Open(cfg domain.RecordingConfig) (domain.Sink, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	s := &memorySink{}
	if o.prepare != nil {
		o.prepare(s)
	}
	o.sinks = append(o.sinks, s)
	o.configs = append(o.configs, cfg)
	return s, nil
}

func (o *memoryOpener) opened() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sinks)
}

// staticSettings is a fixed SettingsStore
type staticSettings struct {
	mu  sync.Mutex
	cfg domain.RecordingConfig
}

func (s *staticSettings) Get() domain.RecordingConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *staticSettings) Set(cfg domain.RecordingConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return nil
}

func waitEvent(t *testing.T, events <-chan domain.SessionEvent) domain.SessionEvent {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout: session event was not emitted")
	}
	return domain.SessionEvent{}
}

func expectNoEvent(t *testing.T, events <-chan domain.SessionEvent) {
	t.Helper()
	select {
	case ev := <-events:
		t.Fatalf("unexpected extra event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}
