package ridge

import (
	"image"
	"math"
)

// toFloat copies the gray levels of src into a row-major float slice
func toFloat(src *image.Gray) []float64 {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < w; x++ {
			out[y*w+x] = float64(row[x])
		}
	}
	return out
}

// meanStd computes mean and standard deviation of the values selected by mask (all values if mask is nil)
func meanStd(values []float64, mask []bool) (mean, std float64, n int) {
	var sum float64
	for i, v := range values {
		if mask != nil && !mask[i] {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, 0, 0
	}
	mean = sum / float64(n)

	var sq float64
	for i, v := range values {
		if mask != nil && !mask[i] {
			continue
		}
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(n)), n
}

// normalize shifts and scales values in place to zero mean and unit deviation over mask
func normalize(values []float64, mask []bool) {
	mean, std, n := meanStd(values, mask)
	if n == 0 {
		return
	}
	if std == 0 {
		for i := range values {
			values[i] = 0
		}
		return
	}
	for i := range values {
		values[i] = (values[i] - mean) / std
	}
}

// segment marks the blocks whose local deviation exceeds threshold as fingerprint area
func segment(values []float64, w, h, blockSize int, threshold float64) []bool {
	mask := make([]bool, w*h)
	for by := 0; by < h; by += blockSize {
		for bx := 0; bx < w; bx += blockSize {
			ey := min(by+blockSize, h)
			ex := min(bx+blockSize, w)

			var sum, sq float64
			count := 0
			for y := by; y < ey; y++ {
				for x := bx; x < ex; x++ {
					v := values[y*w+x]
					sum += v
					sq += v * v
					count++
				}
			}
			mean := sum / float64(count)
			variance := sq/float64(count) - mean*mean
			if variance < 0 {
				variance = 0
			}
			if math.Sqrt(variance) <= threshold {
				continue
			}
			for y := by; y < ey; y++ {
				for x := bx; x < ex; x++ {
					mask[y*w+x] = true
				}
			}
		}
	}
	return mask
}

// sobel returns horizontal and vertical gradients using edge clamping
func sobel(values []float64, w, h int) (gx, gy []float64) {
	gx = make([]float64, w*h)
	gy = make([]float64, w*h)
	at := func(x, y int) float64 {
		x = clampInt(x, 0, w-1)
		y = clampInt(y, 0, h-1)
		return values[y*w+x]
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			tl, tc, tr := at(x-1, y-1), at(x, y-1), at(x+1, y-1)
			ml, mr := at(x-1, y), at(x+1, y)
			bl, bc, br := at(x-1, y+1), at(x, y+1), at(x+1, y+1)
			gx[y*w+x] = (tr + 2*mr + br) - (tl + 2*ml + bl)
			gy[y*w+x] = (bl + 2*bc + br) - (tl + 2*tc + tr)
		}
	}
	return gx, gy
}

// boxMean averages values over a (2r+1)x(2r+1) window clipped to the image, via a summed-area table
func boxMean(values []float64, w, h, r int) []float64 {
	stride := w + 1
	sat := make([]float64, stride*(h+1))
	for y := 0; y < h; y++ {
		var rowSum float64
		for x := 0; x < w; x++ {
			rowSum += values[y*w+x]
			sat[(y+1)*stride+x+1] = sat[y*stride+x+1] + rowSum
		}
	}

	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		y0 := max(y-r, 0)
		y1 := min(y+r+1, h)
		for x := 0; x < w; x++ {
			x0 := max(x-r, 0)
			x1 := min(x+r+1, w)
			sum := sat[y1*stride+x1] - sat[y0*stride+x1] - sat[y1*stride+x0] + sat[y0*stride+x0]
			out[y*w+x] = sum / float64((y1-y0)*(x1-x0))
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
