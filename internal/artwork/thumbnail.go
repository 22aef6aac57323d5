package artwork

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // PNG format support
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/genricoloni/overlay/internal/domain"
	"go.uber.org/zap"
)

const (
	// ThumbnailSize is the edge of the square album art shown in the widget
	ThumbnailSize = 75

	thumbnailQuality  = 90
	thumbnailFilename = "nowplaying.jpg"
)

// Thumbnailer crops album art to a small square and stores it next to the recordings
type Thumbnailer struct {
	logger *zap.Logger
	appCfg domain.Config
}

// NewThumbnailer creates a thumbnailer writing into the configured output directory
func NewThumbnailer(logger *zap.Logger, appCfg domain.Config) *Thumbnailer {
	return &Thumbnailer{
		logger: logger,
		appCfg: appCfg,
	}
}

// Process decodes imageData and fills a ThumbnailSize square, cropping the
// longer side around the center
func (t *Thumbnailer) Process(ctx context.Context, imageData []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dy() == 0 || bounds.Dx() == 0 {
		return nil, fmt.Errorf("invalid image dimensions: %dx%d", bounds.Dx(), bounds.Dy())
	}

	thumb := imaging.Fill(img, ThumbnailSize, ThumbnailSize, imaging.Center, imaging.Lanczos)

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, thumb, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	t.logger.Debug("Thumbnail processed",
		zap.Int("src_w", bounds.Dx()),
		zap.Int("src_h", bounds.Dy()),
		zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

// Render writes the thumbnail to <outputDir>/nowplaying.jpg and returns its absolute path
func (t *Thumbnailer) Render(ctx context.Context, imgData []byte) (string, error) {
	data, err := t.Process(ctx, imgData)
	if err != nil {
		return "", fmt.Errorf("failed to process image: %w", err)
	}

	outputDir := t.appCfg.GetOutputDir()
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(outputDir, thumbnailFilename)

	// Write then rename so readers never see a half-written file
	tmp := outputPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write thumbnail: %w", err)
	}
	if err := os.Rename(tmp, outputPath); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to move thumbnail into place: %w", err)
	}

	t.logger.Info("Thumbnail updated", zap.String("path", outputPath), zap.Int("size", len(data)))

	absPath, err := filepath.Abs(outputPath)
	if err != nil {
		return outputPath, nil
	}
	return absPath, nil
}
