// Package feature converts a detected face region into a fixed-length
// numeric descriptor. The descriptor concatenates a global intensity
// histogram with coarse spatial grid means, computed on a normalized
// grayscale crop. The same bytes always produce the same vector.
package feature

import (
	"errors"
	"fmt"
	"image"

	"github.com/kozaktomas/face-attendance/internal/detect"
	"github.com/kozaktomas/face-attendance/internal/vector"
)

// ErrExtractionFailed indicates the face region was unusable (too small,
// out of frame, or degenerate). Callers must treat this as a hard failure
// and never substitute a zero vector.
var ErrExtractionFailed = errors.New("face extraction failed")

const (
	// faceSize is the square resolution the face crop is normalized to.
	faceSize = 128
	// histBins is the number of intensity histogram bins (first half of the vector).
	histBins = 64
	// gridSize is the spatial grid dimension; gridSize^2 cell means form the second half.
	gridSize = 8
	// cellSize is the pixel size of one grid cell in the normalized crop.
	cellSize = faceSize / gridSize
)

// DefaultMinFaceSize is the minimum width/height in pixels for a face
// region to be considered extractable.
const DefaultMinFaceSize = 30

// Extractor computes face vectors from frame images.
type Extractor struct {
	minFaceSize int
}

// NewExtractor creates an extractor. minFaceSize <= 0 selects the default.
func NewExtractor(minFaceSize int) *Extractor {
	if minFaceSize <= 0 {
		minFaceSize = DefaultMinFaceSize
	}
	return &Extractor{minFaceSize: minFaceSize}
}

// Extract crops the face region out of the frame, normalizes it and
// returns its descriptor. The region is clamped to the frame bounds
// before cropping, matching how detectors near the frame edge behave.
func (e *Extractor) Extract(frame image.Image, region detect.Region) (vector.FaceVector, error) {
	if frame == nil {
		return nil, fmt.Errorf("%w: nil frame", ErrExtractionFailed)
	}
	if region.Width < e.minFaceSize || region.Height < e.minFaceSize {
		return nil, fmt.Errorf("%w: region %dx%d below minimum %d",
			ErrExtractionFailed, region.Width, region.Height, e.minFaceSize)
	}

	crop := region.Rectangle().Intersect(frame.Bounds())
	if crop.Dx() < e.minFaceSize || crop.Dy() < e.minFaceSize {
		return nil, fmt.Errorf("%w: region outside frame bounds", ErrExtractionFailed)
	}

	face := resizeRegion(frame, crop, faceSize, faceSize)
	gray := toGrayscale(face)
	equalizeHist(gray)

	features := make(vector.FaceVector, 0, vector.Dim)
	features = append(features, intensityHistogram(gray)...)
	features = append(features, gridMeans(gray)...)

	if err := features.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	return features, nil
}

// intensityHistogram computes a normalized 64-bin histogram over the
// equalized grayscale crop. Bins sum to 1.
func intensityHistogram(gray [][]uint8) vector.FaceVector {
	counts := make([]int, histBins)
	total := 0
	for x := range gray {
		for y := range gray[x] {
			counts[int(gray[x][y])*histBins/256]++
			total++
		}
	}

	hist := make(vector.FaceVector, histBins)
	for i, c := range counts {
		hist[i] = float32(c) / float32(total)
	}
	return hist
}

// gridMeans computes the mean intensity of each cell in a regular
// gridSize x gridSize grid, scaled into [0, 1].
func gridMeans(gray [][]uint8) vector.FaceVector {
	means := make(vector.FaceVector, 0, gridSize*gridSize)
	for gy := 0; gy < gridSize; gy++ {
		for gx := 0; gx < gridSize; gx++ {
			var sum int
			for x := gx * cellSize; x < (gx+1)*cellSize; x++ {
				for y := gy * cellSize; y < (gy+1)*cellSize; y++ {
					sum += int(gray[x][y])
				}
			}
			mean := float64(sum) / float64(cellSize*cellSize)
			means = append(means, float32(mean/255.0))
		}
	}
	return means
}
