// Package ridge provides fingerprint ridge enhancement operators.
//
// An Enhancer takes a grayscale scan (dark ridges on a light background) and returns a
// grayscale image of the same size in which ridge/valley contrast is accentuated. The
// polarity of the input is kept: ridges stay dark, areas without fingerprint structure
// become white.
package ridge

import (
	"errors"
	"fmt"
	"image"
	"strings"
)

var ErrEmptyImage = errors.New("image has no pixels")

// Enhancer is the swappable ridge enhancement capability used by the enhancement pipeline
type Enhancer interface {
	Name() string
	Enhance(src *image.Gray) (*image.Gray, error)
}

const (
	GaborName    = "gabor"
	IdentityName = "identity"
)

// New returns the enhancer registered under name. An empty name selects the Gabor enhancer.
func New(name string, opts GaborOptions) (Enhancer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", GaborName:
		return NewGaborEnhancer(opts)
	case IdentityName:
		return Identity{}, nil
	default:
		return nil, fmt.Errorf("unknown ridge enhancer: %s (must be '%s' or '%s')", name, GaborName, IdentityName)
	}
}

// Identity returns a copy of its input. It is used when ridge enhancement is disabled and in tests.
type Identity struct{}

func (Identity) Name() string { return IdentityName }

func (Identity) Enhance(src *image.Gray) (*image.Gray, error) {
	b := src.Bounds()
	if b.Empty() {
		return nil, ErrEmptyImage
	}
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		srcRow := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()], srcRow[:b.Dx()])
	}
	return dst, nil
}
