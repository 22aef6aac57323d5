package stopwatch

import (
	"fmt"
	"sync"
	"time"

	"github.com/genricoloni/overlay/internal/clock"
	"go.uber.org/zap"
)

// Stopwatch is the game session timer. Time accumulates only while running.
type Stopwatch struct {
	logger *zap.Logger
	clock  clock.Clock

	mu      sync.Mutex
	running bool
	since   time.Time     // start of the current running stretch
	carried time.Duration // elapsed time from earlier stretches
}

// New creates a stopped timer at 00:00:00
func New(logger *zap.Logger, clk clock.Clock) *Stopwatch {
	return &Stopwatch{logger: logger, clock: clk}
}

// Start resumes the timer. No-op if already running.
func (s *Stopwatch) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.since = s.clock.Now()
	s.logger.Debug("Session timer started", zap.Duration("carried", s.carried))
}

// Pause freezes the timer. No-op if already paused.
func (s *Stopwatch) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.carried += s.clock.Now().Sub(s.since)
	s.running = false
	s.logger.Debug("Session timer paused", zap.Duration("elapsed", s.carried))
}

// Reset stops the timer and zeroes it
func (s *Stopwatch) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
	s.carried = 0
	s.logger.Debug("Session timer reset")
}

// Running reports whether the timer is counting
func (s *Stopwatch) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Elapsed returns the accumulated running time
func (s *Stopwatch) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return s.carried
	}
	return s.carried + s.clock.Now().Sub(s.since)
}

// String formats the elapsed time as HH:MM:SS. Hours do not wrap at 24.
func (s *Stopwatch) String() string {
	return Format(s.Elapsed())
}

// Format renders d as HH:MM:SS, truncating to whole seconds
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
