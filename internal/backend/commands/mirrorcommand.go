package commands

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/fingerprint-enhancer/internal/backend/commandstructure"
	"github.com/jo-hoe/fingerprint-enhancer/internal/common"
)

const (
	AxisHorizontal = "horizontal" // flip left to right
	AxisVertical   = "vertical"   // flip top to bottom
)

// MirrorParams represents typed parameters for the mirror command
type MirrorParams struct {
	Axis string
}

func NewMirrorParamsFromMap(params map[string]any) (*MirrorParams, error) {
	axis := commandstructure.GetStringParam(params, "axis", AxisHorizontal)
	if axis != AxisHorizontal && axis != AxisVertical {
		return nil, fmt.Errorf("invalid axis: %s (must be '%s' or '%s')", axis, AxisHorizontal, AxisVertical)
	}
	return &MirrorParams{Axis: axis}, nil
}

// MirrorCommand flips a grayscale image
type MirrorCommand struct {
	name   string
	params *MirrorParams
}

func NewMirrorCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewMirrorParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &MirrorCommand{
		name:   MirrorCommandName,
		params: typedParams,
	}, nil
}

// NewHorizontalMirrorCommand returns the left-right flip applied to every enhanced fingerprint
func NewHorizontalMirrorCommand() *MirrorCommand {
	return &MirrorCommand{
		name:   MirrorCommandName,
		params: &MirrorParams{Axis: AxisHorizontal},
	}
}

func (c *MirrorCommand) Name() string {
	return c.name
}

func (c *MirrorCommand) Execute(imageData []byte) ([]byte, error) {
	src, err := decodeGray(imageData)
	if err != nil {
		slog.Error("MirrorCommand: failed to decode image", "error", err)
		return nil, err
	}

	var flipped *image.Gray
	if c.params.Axis == AxisVertical {
		flipped = FlipVertical(src)
	} else {
		flipped = FlipHorizontal(src)
	}

	slog.Debug("MirrorCommand: image flipped",
		"axis", c.params.Axis,
		"width", flipped.Bounds().Dx(),
		"height", flipped.Bounds().Dy())

	return encodePNG(flipped)
}

func (c *MirrorCommand) GetParams() *MirrorParams {
	return c.params
}

// FlipHorizontal returns a left-right mirrored copy of src: (x,y) -> (w-1-x, y)
func FlipHorizontal(src *image.Gray) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	common.ParallelRows(h, func(y int) {
		srcRow := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
		dstRow := dst.Pix[y*dst.Stride:]
		for x := 0; x < w; x++ {
			dstRow[w-1-x] = srcRow[x]
		}
	})
	return dst
}

// FlipVertical returns a top-bottom mirrored copy of src: (x,y) -> (x, h-1-y)
func FlipVertical(src *image.Gray) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		srcRow := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
		copy(dst.Pix[(h-1-y)*dst.Stride:(h-1-y)*dst.Stride+w], srcRow[:w])
	}
	return dst
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(MirrorCommandName, NewMirrorCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", MirrorCommandName, err))
	}
}
