package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/detect"
	"github.com/kozaktomas/face-attendance/internal/feature"
	"github.com/kozaktomas/face-attendance/internal/vector"
)

// ErrNoFace indicates a frame with no detectable face.
var ErrNoFace = errors.New("no face detected")

// ErrMultipleFaces indicates a frame with more than one detected face
// where exactly one is required.
var ErrMultipleFaces = errors.New("multiple faces detected")

// Pipeline turns a raw uploaded frame into a face vector: decode,
// detect, pick the primary face, extract. Shared by the enroll and
// recognize handlers.
type Pipeline struct {
	faces     detect.FaceDetector
	extractor *feature.Extractor
}

// NewPipeline creates an extraction pipeline.
func NewPipeline(faces detect.FaceDetector, extractor *feature.Extractor) *Pipeline {
	return &Pipeline{faces: faces, extractor: extractor}
}

// VectorFromFrame extracts the face vector of the primary face in an
// encoded image. Returns ErrNoFace when the detector finds nothing.
func (p *Pipeline) VectorFromFrame(ctx context.Context, data []byte) (vector.FaceVector, error) {
	regions, err := p.faces.DetectFaces(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("face detection: %w", err)
	}

	region, ok := primaryFace(regions)
	if !ok {
		return nil, ErrNoFace
	}

	return p.extract(data, region)
}

// VectorFromSoloFrame is VectorFromFrame restricted to frames containing
// exactly one face. Enrollment uses it so a bystander in the background
// cannot leak into the enrolled vector.
func (p *Pipeline) VectorFromSoloFrame(ctx context.Context, data []byte) (vector.FaceVector, error) {
	regions, err := p.faces.DetectFaces(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("face detection: %w", err)
	}

	switch len(regions) {
	case 0:
		return nil, ErrNoFace
	case 1:
		return p.extract(data, regions[0])
	default:
		return nil, ErrMultipleFaces
	}
}

func (p *Pipeline) extract(data []byte, region detect.Region) (vector.FaceVector, error) {
	frame, err := feature.DecodeFrame(data)
	if err != nil {
		return nil, fmt.Errorf("decoding frame: %w", err)
	}

	return p.extractor.Extract(frame, region)
}
