// Package detect defines the face and eye detection collaborators.
// Detection itself is treated as a black box: implementations return
// bounding boxes and the rest of the pipeline never looks at pixels
// outside the reported regions.
package detect

import (
	"context"
	"image"
)

// Region is a detected bounding box in pixel coordinates.
type Region struct {
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Score  float64 `json:"score,omitempty"`
}

// Rectangle converts the region to an image.Rectangle.
func (r Region) Rectangle() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Empty reports whether the region has no area.
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Openness is the eye-openness proxy: the height-to-width ratio of the
// detected eye box. A low ratio indicates a closing or closed eye.
func (r Region) Openness() float64 {
	if r.Width <= 0 {
		return 0
	}
	return float64(r.Height) / float64(r.Width)
}

// FaceDetector locates face regions in a full frame.
type FaceDetector interface {
	DetectFaces(ctx context.Context, frame []byte) ([]Region, error)
}

// EyeDetector locates eye regions inside a face region. A zero-length
// result means no eyes were found, which the liveness check treats as
// closed eyes.
type EyeDetector interface {
	DetectEyes(ctx context.Context, faceRegion []byte) ([]Region, error)
}
