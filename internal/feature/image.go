package feature

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// DecodeFrame decodes raw frame bytes into an image. JPEG, PNG, GIF and
// BMP are supported.
func DecodeFrame(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return img, nil
}

// resizeRegion scales a sub-rectangle of src to the specified dimensions.
func resizeRegion(src image.Image, crop image.Rectangle, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, crop, draw.Over, nil)
	return dst
}

// toGrayscale converts an image to a 2D array of grayscale values (0-255).
func toGrayscale(img *image.RGBA) [][]uint8 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	gray := make([][]uint8, width)
	for x := range width {
		gray[x] = make([]uint8, height)
		for y := range height {
			r, g, b, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma formula.
			luma := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			if luma > 255 {
				luma = 255
			}
			gray[x][y] = uint8(luma)
		}
	}

	return gray
}

// equalizeHist applies histogram equalization in place, spreading the
// intensity distribution for lighting robustness.
func equalizeHist(gray [][]uint8) {
	var counts [256]int
	total := 0
	for x := range gray {
		for y := range gray[x] {
			counts[gray[x][y]]++
			total++
		}
	}
	if total == 0 {
		return
	}

	// Map each level through the cumulative distribution, anchored at the
	// lowest occupied level so the output spans the full range.
	var lut [256]uint8
	cdf := 0
	cdfMin := -1
	for level, c := range counts {
		cdf += c
		if cdfMin < 0 && c > 0 {
			cdfMin = cdf
		}
		if cdfMin >= 0 && total > cdfMin {
			scaled := float64(cdf-cdfMin) / float64(total-cdfMin) * 255.0
			lut[level] = uint8(scaled + 0.5)
		}
	}

	for x := range gray {
		for y := range gray[x] {
			gray[x][y] = lut[gray[x][y]]
		}
	}
}
