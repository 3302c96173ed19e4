package commands

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/fingerprint-enhancer/internal/backend/commandstructure"

	"golang.org/x/image/draw"
)

// PixelScaleParams represents typed parameters for pixel scale command
type PixelScaleParams struct {
	Height *int // Optional: if nil, will be calculated from width
	Width  *int // Optional: if nil, will be calculated from height
}

// NewPixelScaleParamsFromMap creates PixelScaleParams from a generic map
func NewPixelScaleParamsFromMap(params map[string]any) (*PixelScaleParams, error) {
	_, hasHeight := params["height"]
	_, hasWidth := params["width"]

	if !hasHeight && !hasWidth {
		return nil, fmt.Errorf("at least one of 'height' or 'width' must be specified")
	}

	result := &PixelScaleParams{}

	if hasHeight {
		height := commandstructure.GetIntParam(params, "height", 0)
		if height <= 0 {
			return nil, fmt.Errorf("height must be positive, got %d", height)
		}
		result.Height = &height
	}

	if hasWidth {
		width := commandstructure.GetIntParam(params, "width", 0)
		if width <= 0 {
			return nil, fmt.Errorf("width must be positive, got %d", width)
		}
		result.Width = &width
	}

	return result, nil
}

// PixelScaleCommand resizes a grayscale image with nearest-neighbor sampling so binarized
// fingerprints keep hard edges. Used for UI thumbnails, never inside the enhancement pipeline.
type PixelScaleCommand struct {
	name   string
	params *PixelScaleParams
}

func NewPixelScaleCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewPixelScaleParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &PixelScaleCommand{
		name:   PixelScaleCommandName,
		params: typedParams,
	}, nil
}

func (c *PixelScaleCommand) Name() string {
	return c.name
}

func (c *PixelScaleCommand) Execute(imageData []byte) ([]byte, error) {
	img, err := decodeGray(imageData)
	if err != nil {
		slog.Error("PixelScaleCommand: failed to decode image", "error", err)
		return nil, err
	}

	targetWidth, targetHeight := c.targetSize(img.Bounds().Dx(), img.Bounds().Dy())

	slog.Debug("PixelScaleCommand: scaling image",
		"original_width", img.Bounds().Dx(),
		"original_height", img.Bounds().Dy(),
		"target_width", targetWidth,
		"target_height", targetHeight)

	target := image.NewGray(image.Rect(0, 0, targetWidth, targetHeight))
	draw.NearestNeighbor.Scale(target, target.Bounds(), img, img.Bounds(), draw.Src, nil)

	return encodePNG(target)
}

// targetSize derives missing dimensions from the aspect ratio; results are at least 1 pixel
func (c *PixelScaleCommand) targetSize(originalWidth, originalHeight int) (int, int) {
	aspectRatio := float64(originalWidth) / float64(originalHeight)

	var targetWidth, targetHeight int
	switch {
	case c.params.Width != nil && c.params.Height != nil:
		targetWidth = *c.params.Width
		targetHeight = *c.params.Height
	case c.params.Width != nil:
		targetWidth = *c.params.Width
		targetHeight = int(float64(targetWidth) / aspectRatio)
	default:
		targetHeight = *c.params.Height
		targetWidth = int(float64(targetHeight) * aspectRatio)
	}
	return max(targetWidth, 1), max(targetHeight, 1)
}

func (c *PixelScaleCommand) GetWidth() *int {
	return c.params.Width
}

func (c *PixelScaleCommand) GetHeight() *int {
	return c.params.Height
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(PixelScaleCommandName, NewPixelScaleCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", PixelScaleCommandName, err))
	}
}
