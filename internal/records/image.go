package records

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"
)

// EnhancedImage is an immutable 8-bit grayscale fingerprint produced by the enhancement pipeline
type EnhancedImage struct {
	gray *image.Gray
}

// NewEnhancedImage takes ownership of gray; callers must not modify it afterwards
func NewEnhancedImage(gray *image.Gray) (*EnhancedImage, error) {
	if gray == nil || gray.Bounds().Empty() {
		return nil, fmt.Errorf("enhanced image has no pixels")
	}
	if gray.Bounds().Min != (image.Point{}) {
		normalized := image.NewGray(image.Rect(0, 0, gray.Bounds().Dx(), gray.Bounds().Dy()))
		draw.Copy(normalized, image.Point{}, gray, gray.Bounds(), draw.Src, nil)
		gray = normalized
	}
	return &EnhancedImage{gray: gray}, nil
}

// DecodeEnhancedImage restores an image previously written with EncodePNG
func DecodeEnhancedImage(data []byte) (*EnhancedImage, error) {
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode enhanced image: %w", err)
	}
	gray, ok := decoded.(*image.Gray)
	if !ok {
		gray = image.NewGray(image.Rect(0, 0, decoded.Bounds().Dx(), decoded.Bounds().Dy()))
		draw.Draw(gray, gray.Bounds(), decoded, decoded.Bounds().Min, draw.Src)
	}
	return NewEnhancedImage(gray)
}

func (e *EnhancedImage) Width() int {
	return e.gray.Bounds().Dx()
}

func (e *EnhancedImage) Height() int {
	return e.gray.Bounds().Dy()
}

// GrayAt returns the intensity at (x, y)
func (e *EnhancedImage) GrayAt(x, y int) uint8 {
	return e.gray.GrayAt(x, y).Y
}

// Image returns a copy of the pixels
func (e *EnhancedImage) Image() *image.Gray {
	clone := image.NewGray(e.gray.Bounds())
	copy(clone.Pix, e.gray.Pix)
	return clone
}

func (e *EnhancedImage) EncodePNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, e.gray); err != nil {
		return nil, fmt.Errorf("failed to encode enhanced image: %w", err)
	}
	return buf.Bytes(), nil
}
