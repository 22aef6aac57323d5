package recorder

import (
	"context"
	"time"

	"github.com/genricoloni/overlay/internal/clock"
)

// Scheduler runs a step repeatedly with a fixed gap between the end of one
// step and the start of the next. At most one step is ever in flight and
// ticks that would have fired during a slow step are skipped, not queued.
type Scheduler struct {
	clock clock.Clock
}

// NewScheduler creates a scheduler on the given clock
func NewScheduler(clk clock.Clock) *Scheduler {
	return &Scheduler{clock: clk}
}

// Run executes step immediately, then again period after each completion,
// until ctx is cancelled or step fails. Cancellation never interrupts a
// running step. It returns nil on cancellation and the step error otherwise.
func (s *Scheduler) Run(ctx context.Context, period time.Duration, step func() error) error {
	for {
		if err := step(); err != nil {
			return err
		}
		if err := s.clock.Wait(ctx, period); err != nil {
			return nil
		}
	}
}
