package ridge

import (
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/jo-hoe/fingerprint-enhancer/internal/common"
)

// GaborOptions tunes the oriented Gabor filter bank. Defaults suit 500 dpi scans.
type GaborOptions struct {
	BlockSize         int     // segmentation block edge in pixels
	SegmentThreshold  float64 // minimum block deviation (normalized units) to count as fingerprint
	OrientationRadius int     // radius of the window used to smooth the orientation field
	Frequency         float64 // ridge frequency in cycles per pixel
	SigmaAcross       float64 // gaussian sigma across ridges, in ridge periods
	SigmaAlong        float64 // gaussian sigma along ridges, in ridge periods
	AngleStep         float64 // orientation quantization of the filter bank, in degrees
}

func DefaultGaborOptions() GaborOptions {
	return GaborOptions{
		BlockSize:         16,
		SegmentThreshold:  0.1,
		OrientationRadius: 8,
		Frequency:         0.11,
		SigmaAcross:       0.65,
		SigmaAlong:        0.65,
		AngleStep:         3,
	}
}

func (o GaborOptions) validate() error {
	if o.BlockSize <= 0 {
		return fmt.Errorf("blockSize must be positive, got %d", o.BlockSize)
	}
	if o.SegmentThreshold < 0 {
		return fmt.Errorf("segmentThreshold must not be negative, got %f", o.SegmentThreshold)
	}
	if o.OrientationRadius < 0 {
		return fmt.Errorf("orientationRadius must not be negative, got %d", o.OrientationRadius)
	}
	if o.Frequency <= 0 || o.Frequency >= 0.5 {
		return fmt.Errorf("frequency must be in (0, 0.5), got %f", o.Frequency)
	}
	if o.SigmaAcross <= 0 || o.SigmaAlong <= 0 {
		return fmt.Errorf("gaussian sigmas must be positive, got %f/%f", o.SigmaAcross, o.SigmaAlong)
	}
	if o.AngleStep <= 0 || o.AngleStep > 90 {
		return fmt.Errorf("angleStep must be in (0, 90], got %f", o.AngleStep)
	}
	return nil
}

type gaborKernel struct {
	radius  int
	weights []float64 // (2*radius+1)^2, row-major
}

// GaborEnhancer filters each pixel with an even-symmetric Gabor kernel tuned to the local
// ridge orientation and a global ridge frequency.
type GaborEnhancer struct {
	opts    GaborOptions
	kernels []gaborKernel
}

func NewGaborEnhancer(opts GaborOptions) (*GaborEnhancer, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid gabor options: %w", err)
	}
	return &GaborEnhancer{
		opts:    opts,
		kernels: buildKernelBank(opts),
	}, nil
}

func (g *GaborEnhancer) Name() string { return GaborName }

func (g *GaborEnhancer) Options() GaborOptions { return g.opts }

func (g *GaborEnhancer) Enhance(src *image.Gray) (*image.Gray, error) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, ErrEmptyImage
	}

	pix := toFloat(src)
	normalize(pix, nil)
	mask := segment(pix, w, h, g.opts.BlockSize, g.opts.SegmentThreshold)
	normalize(pix, mask)

	orientation := g.orientationField(pix, w, h)

	response := make([]float64, w*h)
	n := len(g.kernels)
	common.ParallelRows(h, func(y int) {
		for x := 0; x < w; x++ {
			i := y*w + x
			if !mask[i] {
				continue
			}
			k := &g.kernels[angleBin(orientation[i], n)]
			response[i] = convolveAt(pix, w, h, x, y, k)
		}
	})

	_, std, covered := meanStd(response, mask)
	scale := 0.0
	if std > 0 {
		scale = 64 / std
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	for i := range dst.Pix[:w*h] {
		y, x := i/w, i%w
		if !mask[i] {
			dst.Pix[y*dst.Stride+x] = 255
			continue
		}
		dst.Pix[y*dst.Stride+x] = clamp8(128 + response[i]*scale)
	}

	slog.Debug("GaborEnhancer: enhancement complete",
		"width", w,
		"height", h,
		"fingerprint_pixels", covered,
		"kernel_count", n)

	return dst, nil
}

// orientationField returns the dominant gradient direction per pixel in (-pi/2, pi/2].
// Ridges run perpendicular to it.
func (g *GaborEnhancer) orientationField(pix []float64, w, h int) []float64 {
	gx, gy := sobel(pix, w, h)
	gxx := make([]float64, w*h)
	gyy := make([]float64, w*h)
	gxy := make([]float64, w*h)
	for i := range gx {
		gxx[i] = gx[i] * gx[i]
		gyy[i] = gy[i] * gy[i]
		gxy[i] = gx[i] * gy[i]
	}
	r := g.opts.OrientationRadius
	gxx = boxMean(gxx, w, h, r)
	gyy = boxMean(gyy, w, h, r)
	gxy = boxMean(gxy, w, h, r)

	// smooth the doubled angle so that opposite gradient directions reinforce each other
	cos2 := make([]float64, w*h)
	sin2 := make([]float64, w*h)
	for i := range gxx {
		theta2 := math.Atan2(2*gxy[i], gxx[i]-gyy[i])
		cos2[i] = math.Cos(theta2)
		sin2[i] = math.Sin(theta2)
	}
	cos2 = boxMean(cos2, w, h, r)
	sin2 = boxMean(sin2, w, h, r)

	orientation := make([]float64, w*h)
	for i := range orientation {
		orientation[i] = 0.5 * math.Atan2(sin2[i], cos2[i])
	}
	return orientation
}

func angleBin(theta float64, n int) int {
	if theta < 0 {
		theta += math.Pi
	}
	return int(math.Round(theta/math.Pi*float64(n))) % n
}

func convolveAt(pix []float64, w, h, x, y int, k *gaborKernel) float64 {
	r := k.radius
	size := 2*r + 1
	var sum float64
	for ky := -r; ky <= r; ky++ {
		sy := y + ky
		if sy < 0 || sy >= h {
			continue
		}
		row := pix[sy*w:]
		weights := k.weights[(ky+r)*size:]
		for kx := -r; kx <= r; kx++ {
			sx := x + kx
			if sx < 0 || sx >= w {
				continue
			}
			sum += row[sx] * weights[kx+r]
		}
	}
	return sum
}

func buildKernelBank(opts GaborOptions) []gaborKernel {
	n := int(math.Round(180 / opts.AngleStep))
	if n < 1 {
		n = 1
	}
	period := 1 / opts.Frequency
	sigmaU := opts.SigmaAcross * period
	sigmaV := opts.SigmaAlong * period
	radius := int(math.Ceil(3 * math.Max(sigmaU, sigmaV)))
	size := 2*radius + 1

	kernels := make([]gaborKernel, n)
	for k := 0; k < n; k++ {
		phi := float64(k) * math.Pi / float64(n)
		cosPhi, sinPhi := math.Cos(phi), math.Sin(phi)
		weights := make([]float64, size*size)

		var sum float64
		for y := -radius; y <= radius; y++ {
			for x := -radius; x <= radius; x++ {
				u := float64(x)*cosPhi + float64(y)*sinPhi
				v := -float64(x)*sinPhi + float64(y)*cosPhi
				envelope := math.Exp(-0.5 * (u*u/(sigmaU*sigmaU) + v*v/(sigmaV*sigmaV)))
				value := envelope * math.Cos(2*math.Pi*opts.Frequency*u)
				weights[(y+radius)*size+x+radius] = value
				sum += value
			}
		}
		// remove the DC component so flat regions produce no response
		mean := sum / float64(len(weights))
		for i := range weights {
			weights[i] -= mean
		}
		kernels[k] = gaborKernel{radius: radius, weights: weights}
	}
	return kernels
}
