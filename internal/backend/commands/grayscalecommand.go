package commands

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/fingerprint-enhancer/internal/backend/commandstructure"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// GrayscaleCommand decodes an uploaded raster (PNG, JPEG, BMP or TIFF) and collapses it to
// 8-bit luminance. It is the entry step of the enhancement pipeline.
type GrayscaleCommand struct {
	name string
}

func NewGrayscaleCommand(params map[string]any) (commandstructure.Command, error) {
	return NewGrayscaleCommandDirect(), nil
}

func NewGrayscaleCommandDirect() *GrayscaleCommand {
	return &GrayscaleCommand{
		name: GrayscaleCommandName,
	}
}

func (c *GrayscaleCommand) Name() string {
	return c.name
}

func (c *GrayscaleCommand) Execute(imageData []byte) ([]byte, error) {
	slog.Debug("GrayscaleCommand: start", "input_size_bytes", len(imageData))

	if len(imageData) == 0 {
		return nil, fmt.Errorf("failed to decode image: no data")
	}

	img, format, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		slog.Debug("GrayscaleCommand: failed to decode image", "error", err)
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("failed to decode image: %s image has no pixels", format)
	}

	gray := toGray(img)

	slog.Debug("GrayscaleCommand: decoded raster image",
		"format", format,
		"color_model", fmt.Sprintf("%T", img.ColorModel()),
		"width", gray.Bounds().Dx(),
		"height", gray.Bounds().Dy())

	out, err := encodePNG(gray)
	if err != nil {
		slog.Error("GrayscaleCommand: failed to encode grayscale image", "error", err)
		return nil, err
	}
	return out, nil
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(GrayscaleCommandName, NewGrayscaleCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", GrayscaleCommandName, err))
	}
}
