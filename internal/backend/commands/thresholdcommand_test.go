package commands

import (
	"image"
	"testing"
)

func allIntensities() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 256, 1))
	for p := 0; p < 256; p++ {
		img.Pix[p] = uint8(p)
	}
	return img
}

func TestNewThresholdCommand_Defaults(t *testing.T) {
	command, err := NewThresholdCommand(map[string]any{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	params := command.(*ThresholdCommand).GetParams()
	if params.Threshold != 127 || !params.Invert {
		t.Errorf("Expected threshold 127 inverted, got %+v", params)
	}
}

func TestNewThresholdCommand_InvalidThreshold(t *testing.T) {
	for _, threshold := range []int{-1, 256} {
		if _, err := NewThresholdCommand(map[string]any{"threshold": threshold}); err == nil {
			t.Errorf("Expected error for threshold %d", threshold)
		}
	}
}

func TestThresholdCommand_InvertedBinarization(t *testing.T) {
	command, err := NewThresholdCommand(map[string]any{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	out, err := command.Execute(mustPNG(t, allIntensities()))
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	gray := mustDecodeGray(t, out)

	for p := 0; p < 256; p++ {
		want := uint8(0)
		if p < 127 {
			want = 255
		}
		if got := gray.GrayAt(p, 0).Y; got != want {
			t.Fatalf("intensity %d: expected %d, got %d", p, want, got)
		}
	}
}

func TestThresholdCommand_NonInverted(t *testing.T) {
	command, err := NewThresholdCommand(map[string]any{"threshold": 200, "invert": false})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	out, err := command.Execute(mustPNG(t, allIntensities()))
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	gray := mustDecodeGray(t, out)

	for p := 0; p < 256; p++ {
		want := uint8(0)
		if p > 200 {
			want = 255
		}
		if got := gray.GrayAt(p, 0).Y; got != want {
			t.Errorf("pixel %d: expected %d, got %d", p, want, got)
		}
	}
}

func TestThresholdCommand_InvalidImage(t *testing.T) {
	command, _ := NewThresholdCommand(map[string]any{})
	if _, err := command.Execute([]byte("garbage")); err == nil {
		t.Error("Expected error for invalid image data")
	}
}
