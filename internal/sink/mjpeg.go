package sink

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"

	"github.com/genricoloni/overlay/internal/domain"
	"github.com/icza/mjpeg"
	"go.uber.org/zap"
)

// Opener creates MJPEG-in-AVI sinks
type Opener struct {
	logger *zap.Logger
}

// NewOpener creates a sink opener
func NewOpener(logger *zap.Logger) *Opener {
	return &Opener{logger: logger}
}

// Open creates or truncates cfg.OutputPath and writes the AVI header.
// The parent directory is created if missing.
func (o *Opener) Open(cfg domain.RecordingConfig) (domain.Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSinkOpen, err)
	}

	if dir := filepath.Dir(cfg.OutputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: failed to create output directory: %v", domain.ErrSinkOpen, err)
		}
	}

	aw, err := mjpeg.New(cfg.OutputPath,
		int32(cfg.Resolution.Width),
		int32(cfg.Resolution.Height),
		int32(cfg.FrameRate))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSinkOpen, err)
	}

	o.logger.Info("Video sink opened",
		zap.String("path", cfg.OutputPath),
		zap.Stringer("resolution", cfg.Resolution),
		zap.Int("fps", cfg.FrameRate),
		zap.Int("quality", cfg.Quality))

	return &MJPEGSink{
		logger: o.logger,
		writer: aw,
		path:   cfg.OutputPath,
		res:    cfg.Resolution,
		opts:   &jpeg.Options{Quality: cfg.Quality},
		buf:    new(bytes.Buffer),
	}, nil
}

// MJPEGSink appends JPEG-encoded frames to an AVI file
type MJPEGSink struct {
	logger *zap.Logger
	writer mjpeg.AviWriter
	path   string
	res    domain.ScreenResolution
	opts   *jpeg.Options

	mu      sync.Mutex
	buf     *bytes.Buffer
	frames  uint64
	lastSeq uint64
	closed  bool
}

// WriteFrame encodes the frame and appends it to the stream
func (s *MJPEGSink) WriteFrame(frame domain.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSinkClosed
	}
	if frame.Image == nil || !s.res.Matches(frame.Image.Bounds()) {
		return fmt.Errorf("%w: frame %d does not match %s", domain.ErrFrameMismatch, frame.Seq, s.res)
	}
	if frame.Seq <= s.lastSeq {
		return fmt.Errorf("%w: frame %d after %d", domain.ErrFrameOrder, frame.Seq, s.lastSeq)
	}

	s.buf.Reset()
	if err := jpeg.Encode(s.buf, frame.Image, s.opts); err != nil {
		return fmt.Errorf("failed to encode frame %d: %w", frame.Seq, err)
	}
	if err := s.writer.AddFrame(s.buf.Bytes()); err != nil {
		return fmt.Errorf("failed to append frame %d: %w", frame.Seq, err)
	}

	s.frames++
	s.lastSeq = frame.Seq
	return nil
}

// Frames returns the number of frames written
func (s *MJPEGSink) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Close writes the frame count and index, then releases the file.
// Only the first call does any work. On failure the partial file is left on disk.
func (s *MJPEGSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.writer.Close(); err != nil {
		s.logger.Error("Failed to finalize video",
			zap.String("path", s.path),
			zap.Uint64("frames", s.frames),
			zap.Error(err))
		return fmt.Errorf("failed to finalize %s: %w", s.path, err)
	}

	s.logger.Info("Video sink finalized",
		zap.String("path", s.path),
		zap.Uint64("frames", s.frames))
	return nil
}
