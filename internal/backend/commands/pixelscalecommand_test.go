package commands

import (
	"testing"
)

func TestNewPixelScaleCommand_Params(t *testing.T) {
	tests := []struct {
		name       string
		params     map[string]any
		wantWidth  *int
		wantHeight *int
		wantErr    bool
	}{
		{"both", map[string]any{"height": 800, "width": 600}, intPtr(600), intPtr(800), false},
		{"only height", map[string]any{"height": 800}, nil, intPtr(800), false},
		{"only width", map[string]any{"width": 600}, intPtr(600), nil, false},
		{"missing", map[string]any{}, nil, nil, true},
		{"zero width", map[string]any{"width": 0}, nil, nil, true},
		{"negative height", map[string]any{"height": -5}, nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			command, err := NewPixelScaleCommand(tt.params)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			scaleCmd := command.(*PixelScaleCommand)
			if !equalIntPtr(scaleCmd.GetWidth(), tt.wantWidth) {
				t.Errorf("Expected width %v, got %v", tt.wantWidth, scaleCmd.GetWidth())
			}
			if !equalIntPtr(scaleCmd.GetHeight(), tt.wantHeight) {
				t.Errorf("Expected height %v, got %v", tt.wantHeight, scaleCmd.GetHeight())
			}
		})
	}
}

func TestPixelScaleCommand_PreservesAspectRatio(t *testing.T) {
	command, err := NewPixelScaleCommand(map[string]any{"width": 50})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	out, err := command.Execute(mustPNG(t, gradient(200, 100, 0, 255)))
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	gray := mustDecodeGray(t, out)
	if gray.Bounds().Dx() != 50 || gray.Bounds().Dy() != 25 {
		t.Errorf("Expected 50x25, got %dx%d", gray.Bounds().Dx(), gray.Bounds().Dy())
	}
}

func TestPixelScaleCommand_KeepsBinaryValues(t *testing.T) {
	src := grayFromRows([][]uint8{{0, 255}, {255, 0}})
	command, _ := NewPixelScaleCommand(map[string]any{"width": 8, "height": 8})

	out, err := command.Execute(mustPNG(t, src))
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	for i, v := range mustDecodeGray(t, out).Pix {
		if v != 0 && v != 255 {
			t.Fatalf("pixel %d: expected binary value, got %d", i, v)
		}
	}
}

func intPtr(v int) *int { return &v }

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
