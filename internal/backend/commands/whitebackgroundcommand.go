package commands

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/fingerprint-enhancer/internal/backend/commandstructure"

	"golang.org/x/image/draw"
)

// WhiteBackgroundCommand pastes the single channel image at the origin of a white canvas
// of the same size, which drops any alpha and origin offset of the input.
type WhiteBackgroundCommand struct {
	name string
}

func NewWhiteBackgroundCommand(map[string]any) (commandstructure.Command, error) {
	return &WhiteBackgroundCommand{name: WhiteBackgroundCommandName}, nil
}

func (c *WhiteBackgroundCommand) Name() string {
	return c.name
}

func (c *WhiteBackgroundCommand) Execute(imageData []byte) ([]byte, error) {
	src, err := decodeGray(imageData)
	if err != nil {
		slog.Error("WhiteBackgroundCommand: failed to decode image", "error", err)
		return nil, err
	}

	width, height := src.Bounds().Dx(), src.Bounds().Dy()
	canvas := image.NewGray(image.Rect(0, 0, width, height))
	for i := range canvas.Pix {
		canvas.Pix[i] = maxIntensity
	}

	draw.Copy(canvas, image.Point{}, src, src.Bounds(), draw.Src, nil)

	slog.Debug("WhiteBackgroundCommand: pasted image onto white canvas",
		"width", width,
		"height", height)

	return encodePNG(canvas)
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(WhiteBackgroundCommandName, NewWhiteBackgroundCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", WhiteBackgroundCommandName, err))
	}
}
