package capture

import (
	"github.com/genricoloni/overlay/internal/domain"
	"go.uber.org/zap"
)

// fallbackResolution is used when no display can be queried (headless sessions)
var fallbackResolution = domain.ScreenResolution{Width: 1920, Height: 1080}

// NewScreenResolution detects the primary screen resolution at startup
func NewScreenResolution(logger *zap.Logger, display Display) *domain.ScreenResolution {
	n := display.NumActiveDisplays()
	if n <= 0 {
		logger.Warn("No active displays detected, falling back to default resolution",
			zap.Stringer("resolution", fallbackResolution))
		res := fallbackResolution
		return &res
	}

	// Use primary monitor (index 0)
	bounds := display.Bounds(0)
	res := &domain.ScreenResolution{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}

	logger.Info("Screen resolution detected",
		zap.Int("width", res.Width),
		zap.Int("height", res.Height),
		zap.Int("displays", n))

	return res
}
