package capture

import (
	"image"

	"github.com/kbinani/screenshot"
)

// Display abstracts the platform screen grabber.
// This abstraction allows us to mock display access in tests.
//
//go:generate mockgen -destination=mocks/display_mock.go -package=mocks github.com/genricoloni/overlay/internal/capture Display
type Display interface {
	// NumActiveDisplays returns the number of readable displays
	NumActiveDisplays() int

	// Bounds returns the rectangle covered by the display
	Bounds(index int) image.Rectangle

	// Grab captures the display contents
	Grab(index int) (*image.RGBA, error)
}

// StdDisplay is the real implementation backed by kbinani/screenshot
type StdDisplay struct{}

// NewStdDisplay creates the screenshot-backed display
func NewStdDisplay() *StdDisplay {
	return &StdDisplay{}
}

// NumActiveDisplays returns the number of active displays
func (StdDisplay) NumActiveDisplays() int {
	return screenshot.NumActiveDisplays()
}

// Bounds returns the display bounds
func (StdDisplay) Bounds(index int) image.Rectangle {
	return screenshot.GetDisplayBounds(index)
}

// Grab captures the full display
func (StdDisplay) Grab(index int) (*image.RGBA, error) {
	return screenshot.CaptureDisplay(index)
}
