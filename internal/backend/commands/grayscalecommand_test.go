package commands

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/jo-hoe/fingerprint-enhancer/internal/backend/commandstructure"

	"golang.org/x/image/bmp"
)

func rgbaSample(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 200, A: 255})
		}
	}
	return img
}

func TestGrayscaleCommand_DecodesSupportedFormats(t *testing.T) {
	src := rgbaSample(12, 7)

	var jpegBuf bytes.Buffer
	if err := jpeg.Encode(&jpegBuf, src, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	var bmpBuf bytes.Buffer
	if err := bmp.Encode(&bmpBuf, src); err != nil {
		t.Fatalf("failed to encode bmp: %v", err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"PNG", mustPNG(t, src)},
		{"JPEG", jpegBuf.Bytes()},
		{"BMP", bmpBuf.Bytes()},
	}

	command := NewGrayscaleCommandDirect()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := command.Execute(tt.data)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			gray := mustDecodeGray(t, out)
			if gray.Bounds() != image.Rect(0, 0, 12, 7) {
				t.Errorf("Expected 12x7 at origin, got %v", gray.Bounds())
			}
		})
	}
}

func TestGrayscaleCommand_UsesLuminanceWeights(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 1))
	src.Set(0, 0, color.RGBA{R: 255, A: 255})
	src.Set(1, 0, color.RGBA{G: 255, A: 255})
	src.Set(2, 0, color.RGBA{B: 255, A: 255})

	out, err := NewGrayscaleCommandDirect().Execute(mustPNG(t, src))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	gray := mustDecodeGray(t, out)

	expected := []uint8{76, 150, 29}
	for x, want := range expected {
		if got := gray.GrayAt(x, 0).Y; got != want {
			t.Errorf("pixel %d: expected %d, got %d", x, want, got)
		}
	}
}

func TestGrayscaleCommand_SixteenBitInput(t *testing.T) {
	src := image.NewGray16(image.Rect(0, 0, 2, 1))
	src.SetGray16(0, 0, color.Gray16{Y: 0xffff})
	src.SetGray16(1, 0, color.Gray16{Y: 0x8000})

	out, err := NewGrayscaleCommandDirect().Execute(mustPNG(t, src))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	gray := mustDecodeGray(t, out)
	if gray.GrayAt(0, 0).Y != 255 || gray.GrayAt(1, 0).Y != 128 {
		t.Errorf("Expected [255 128], got [%d %d]", gray.GrayAt(0, 0).Y, gray.GrayAt(1, 0).Y)
	}
}

func TestGrayscaleCommand_InvalidImage(t *testing.T) {
	command := NewGrayscaleCommandDirect()
	for _, data := range [][]byte{nil, []byte("not a valid image")} {
		if _, err := command.Execute(data); err == nil {
			t.Errorf("Expected error for %q, got nil", data)
		}
	}
}

func TestGrayscaleCommand_RegisteredInDefaultRegistry(t *testing.T) {
	command, err := commandstructure.DefaultRegistry.Create(GrayscaleCommandName, nil)
	if err != nil {
		t.Fatalf("Failed to create command via registry: %v", err)
	}
	if command.Name() != GrayscaleCommandName {
		t.Errorf("Expected name '%s', got '%s'", GrayscaleCommandName, command.Name())
	}
}
