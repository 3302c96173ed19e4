package commands

import (
	"fmt"
	"log/slog"

	"github.com/jo-hoe/fingerprint-enhancer/internal/backend/commandstructure"
	"github.com/jo-hoe/fingerprint-enhancer/internal/common"
)

const (
	DefaultThreshold = 127
	maxIntensity     = 255
	minIntensity     = 0
)

// ThresholdParams represents typed parameters for the threshold command
type ThresholdParams struct {
	Threshold int
	// Invert maps pixels below the threshold to white and all others to black.
	// Without inversion only pixels above the threshold become white.
	Invert bool
}

func NewThresholdParamsFromMap(params map[string]any) (*ThresholdParams, error) {
	threshold := commandstructure.GetIntParam(params, "threshold", DefaultThreshold)
	invert := commandstructure.GetBoolParam(params, "invert", true)

	if threshold < 0 || threshold > 255 {
		return nil, fmt.Errorf("threshold must be between 0 and 255, got %d", threshold)
	}

	return &ThresholdParams{
		Threshold: threshold,
		Invert:    invert,
	}, nil
}

// ThresholdCommand binarizes a grayscale image with a fixed threshold
type ThresholdCommand struct {
	name   string
	params *ThresholdParams
}

func NewThresholdCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewThresholdParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &ThresholdCommand{
		name:   ThresholdCommandName,
		params: typedParams,
	}, nil
}

func (c *ThresholdCommand) Name() string {
	return c.name
}

func (c *ThresholdCommand) Execute(imageData []byte) ([]byte, error) {
	img, err := decodeGray(imageData)
	if err != nil {
		slog.Error("ThresholdCommand: failed to decode image", "error", err)
		return nil, err
	}

	lut := c.lookupTable()
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	common.ParallelRows(h, func(y int) {
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		for x, v := range row {
			row[x] = lut[v]
		}
	})

	slog.Debug("ThresholdCommand: binarization complete",
		"threshold", c.params.Threshold,
		"invert", c.params.Invert,
		"width", w,
		"height", h)

	return encodePNG(img)
}

func (c *ThresholdCommand) lookupTable() [256]uint8 {
	var lut [256]uint8
	for p := 0; p < 256; p++ {
		var bright bool
		if c.params.Invert {
			bright = p < c.params.Threshold
		} else {
			bright = p > c.params.Threshold
		}
		if bright {
			lut[p] = maxIntensity
		} else {
			lut[p] = minIntensity
		}
	}
	return lut
}

func (c *ThresholdCommand) GetParams() *ThresholdParams {
	return c.params
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(ThresholdCommandName, NewThresholdCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", ThresholdCommandName, err))
	}
}
