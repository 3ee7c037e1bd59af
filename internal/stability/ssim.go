package stability

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// compareWidth is the width frames are downscaled to before comparison.
// Similarity polling does not need full resolution and the smaller planes
// keep each poll cheap.
const compareWidth = 256

// ssim computes the global structural similarity of two equally sized
// grayscale planes. 1.0 means identical.
func ssim(a, b *image.Gray) float64 {
	const (
		c1 = (0.01 * 255) * (0.01 * 255)
		c2 = (0.03 * 255) * (0.03 * 255)
	)
	n := len(a.Pix)
	if n == 0 || n != len(b.Pix) {
		return 0
	}

	var sumA, sumB float64
	for i := 0; i < n; i++ {
		sumA += float64(a.Pix[i])
		sumB += float64(b.Pix[i])
	}
	meanA := sumA / float64(n)
	meanB := sumB / float64(n)

	var varA, varB, covar float64
	for i := 0; i < n; i++ {
		da := float64(a.Pix[i]) - meanA
		db := float64(b.Pix[i]) - meanB
		varA += da * da
		varB += db * db
		covar += da * db
	}
	varA /= float64(n - 1)
	varB /= float64(n - 1)
	covar /= float64(n - 1)

	num := (2*meanA*meanB + c1) * (2*covar + c2)
	den := (meanA*meanA + meanB*meanB + c1) * (varA + varB + c2)
	return num / den
}

// grayPlane converts and downscales a frame to the comparison plane.
func grayPlane(img image.Image) *image.Gray {
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return image.NewGray(image.Rect(0, 0, 0, 0))
	}
	w := compareWidth
	if bounds.Dx() < w {
		w = bounds.Dx()
	}
	h := bounds.Dy() * w / bounds.Dx()
	if h == 0 {
		h = 1
	}

	small := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), img, bounds, draw.Src, nil)

	gray := image.NewGray(small.Bounds())
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gray.Set(x, y, color.GrayModel.Convert(small.At(x, y)))
		}
	}
	return gray
}

// samePlaneSize reports whether the two planes can be compared directly.
func samePlaneSize(a, b *image.Gray) bool {
	return a.Bounds().Dx() == b.Bounds().Dx() && a.Bounds().Dy() == b.Bounds().Dy()
}
