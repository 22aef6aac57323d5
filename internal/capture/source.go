package capture

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/genricoloni/overlay/internal/clock"
	"github.com/genricoloni/overlay/internal/domain"
	"go.uber.org/zap"
)

// ScreenSource captures one display and scales it to the requested resolution
type ScreenSource struct {
	logger  *zap.Logger
	display Display
	clock   clock.Clock
	index   int
}

// NewScreenSource creates a frame source for the configured display
func NewScreenSource(logger *zap.Logger, display Display, clk clock.Clock, cfg domain.Config) *ScreenSource {
	return &ScreenSource{
		logger:  logger,
		display: display,
		clock:   clk,
		index:   cfg.GetDisplayIndex(),
	}
}

// Capture grabs the display. The returned frame always has exactly res size;
// Seq is left for the caller to assign.
func (s *ScreenSource) Capture(res domain.ScreenResolution) (domain.Frame, error) {
	n := s.display.NumActiveDisplays()
	if n <= 0 {
		return domain.Frame{}, fmt.Errorf("%w: no active display", domain.ErrCaptureUnavailable)
	}
	if s.index >= n {
		return domain.Frame{}, fmt.Errorf("%w: display %d out of range (have %d)", domain.ErrCaptureUnavailable, s.index, n)
	}

	img, err := s.display.Grab(s.index)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("%w: %v", domain.ErrCaptureUnavailable, err)
	}
	if img == nil || img.Bounds().Empty() {
		return domain.Frame{}, fmt.Errorf("%w: display %d returned an empty image", domain.ErrCaptureUnavailable, s.index)
	}

	var out image.Image = img
	if !res.Matches(img.Bounds()) {
		s.logger.Debug("Resampling frame",
			zap.Int("fromW", img.Bounds().Dx()),
			zap.Int("fromH", img.Bounds().Dy()),
			zap.Stringer("to", res))
		out = imaging.Resize(img, res.Width, res.Height, imaging.Linear)
	}

	return domain.Frame{
		Image:      out,
		CapturedAt: s.clock.Now(),
	}, nil
}
