package commands

import (
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/jo-hoe/fingerprint-enhancer/internal/backend/commandstructure"
	"github.com/jo-hoe/fingerprint-enhancer/internal/common"
)

const DefaultContrastFactor = 3.0

// ContrastParams represents typed parameters for the contrast command
type ContrastParams struct {
	Factor float64
}

func NewContrastParamsFromMap(params map[string]any) (*ContrastParams, error) {
	factor := commandstructure.GetFloatParam(params, "factor", DefaultContrastFactor)
	if factor < 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return nil, fmt.Errorf("factor must be a finite non-negative number, got %f", factor)
	}
	return &ContrastParams{Factor: factor}, nil
}

// ContrastCommand scales every pixel's distance from the image mean by a constant factor.
// The mean is rounded to the nearest gray level and results are truncated and clamped to
// [0, 255]: p' = clamp(trunc(mean + (p - mean) * factor)).
type ContrastCommand struct {
	name   string
	params *ContrastParams
}

func NewContrastCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewContrastParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &ContrastCommand{
		name:   ContrastCommandName,
		params: typedParams,
	}, nil
}

func (c *ContrastCommand) Name() string {
	return c.name
}

func (c *ContrastCommand) Execute(imageData []byte) ([]byte, error) {
	img, err := decodeGray(imageData)
	if err != nil {
		slog.Error("ContrastCommand: failed to decode image", "error", err)
		return nil, err
	}

	mean := meanGray(img)
	lut := contrastTable(mean, c.params.Factor)

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	common.ParallelRows(h, func(y int) {
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		for x, v := range row {
			row[x] = lut[v]
		}
	})

	slog.Debug("ContrastCommand: contrast adjusted",
		"factor", c.params.Factor,
		"mean", mean)

	return encodePNG(img)
}

func (c *ContrastCommand) GetParams() *ContrastParams {
	return c.params
}

// meanGray returns the image mean rounded to the nearest gray level
func meanGray(img *image.Gray) int {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w == 0 || h == 0 {
		return 0
	}
	var sum uint64
	for y := 0; y < h; y++ {
		for _, v := range img.Pix[y*img.Stride : y*img.Stride+w] {
			sum += uint64(v)
		}
	}
	return int(float64(sum)/float64(w*h) + 0.5)
}

func contrastTable(mean int, factor float64) [256]uint8 {
	var lut [256]uint8
	m := float64(mean)
	for p := 0; p < 256; p++ {
		v := int(m + (float64(p)-m)*factor)
		switch {
		case v < minIntensity:
			lut[p] = minIntensity
		case v > maxIntensity:
			lut[p] = maxIntensity
		default:
			lut[p] = uint8(v)
		}
	}
	return lut
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(ContrastCommandName, NewContrastCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", ContrastCommandName, err))
	}
}
