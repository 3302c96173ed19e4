package commands

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// grayFromRows builds a gray image where rows[y][x] is the intensity at (x, y)
func grayFromRows(rows [][]uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, len(rows[0]), len(rows)))
	for y, row := range rows {
		for x, v := range row {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func mustPNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func mustDecodeGray(t testing.TB, data []byte) *image.Gray {
	t.Helper()
	img, err := decodeGray(data)
	if err != nil {
		t.Fatalf("failed to decode command output: %v", err)
	}
	return img
}

// gradient returns a w x h image whose intensity ramps from lo to hi along x
func gradient(w, h int, lo, hi uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := int(lo)
			if w > 1 {
				v = int(lo) + (int(hi)-int(lo))*x/(w-1)
			}
			img.SetGray(x, y, color.Gray{Y: uint8(v)})
		}
	}
	return img
}

func variance(img *image.Gray) float64 {
	var sum, sq float64
	n := float64(len(img.Pix))
	for _, v := range img.Pix {
		sum += float64(v)
	}
	mean := sum / n
	for _, v := range img.Pix {
		d := float64(v) - mean
		sq += d * d
	}
	return sq / n
}
