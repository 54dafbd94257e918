package layout

import (
	"image"
	"image/draw"
)

// Binarize converts an image to a black-on-white grayscale grid. Pixels at or
// below threshold become ink (0), everything else background (255).
func Binarize(src image.Image, threshold uint8) *image.Gray {
	bounds := src.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), src, bounds.Min, draw.Src)

	for i, v := range gray.Pix {
		if v <= threshold {
			gray.Pix[i] = 0
		} else {
			gray.Pix[i] = 255
		}
	}
	return gray
}

// CropVertical returns the band of g between rows top (inclusive) and
// bottom (exclusive). Out-of-range bounds are clamped; an empty or inverted
// range returns g unchanged.
func CropVertical(g *image.Gray, top, bottom int) *image.Gray {
	b := g.Bounds()
	top = clamp(top, b.Min.Y, b.Max.Y)
	bottom = clamp(bottom, b.Min.Y, b.Max.Y)
	if bottom <= top {
		return g
	}
	return g.SubImage(image.Rect(b.Min.X, top, b.Max.X, bottom)).(*image.Gray)
}

// OtsuThreshold picks a global binarization threshold by maximizing the
// between-class variance of the grayscale histogram.
func OtsuThreshold(src image.Image) uint8 {
	bounds := src.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), src, bounds.Min, draw.Src)

	var hist [256]int
	for _, v := range gray.Pix {
		hist[v]++
	}

	total := len(gray.Pix)
	if total == 0 {
		return 128
	}

	var sum float64
	for i, c := range hist {
		sum += float64(i) * float64(c)
	}

	var sumB, wB float64
	var best float64
	threshold := uint8(128)

	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])

		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			threshold = uint8(t)
		}
	}
	return threshold
}
