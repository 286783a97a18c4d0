package handlers

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/detect"
	"github.com/kozaktomas/face-attendance/internal/feature"
	"github.com/kozaktomas/face-attendance/internal/liveness"
	"github.com/kozaktomas/face-attendance/internal/match"
	"github.com/kozaktomas/face-attendance/internal/store"
)

// fakeFaceDetector returns a fixed set of regions without any network.
type fakeFaceDetector struct {
	regions []detect.Region
	err     error
}

func (f *fakeFaceDetector) DetectFaces(ctx context.Context, frame []byte) ([]detect.Region, error) {
	return f.regions, f.err
}

// createGradientImage produces a deterministic test frame.
func createGradientImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8((x * 255) / width)
			img.Set(x, y, color.RGBA{R: v, G: uint8((y * 255) / height), B: v / 2, A: 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode JPEG: %v", err)
	}
	return buf.Bytes()
}

func testFrameJPEG(t *testing.T) []byte {
	t.Helper()
	return encodeJPEG(t, createGradientImage(200, 200))
}

func fullFrameDetector() *fakeFaceDetector {
	return &fakeFaceDetector{regions: []detect.Region{{X: 0, Y: 0, Width: 200, Height: 200, Score: 0.99}}}
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.OpenFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("could not open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newTestController(t *testing.T, st store.Store) *attendance.Controller {
	t.Helper()
	ctrl, err := attendance.NewController(context.Background(), st, match.NewEngine(8.0), attendance.Params{
		Cooldown: 10 * time.Second,
		Liveness: liveness.Params{
			ClosureThreshold: 0.25,
			MinClosedFrames:  2,
			MinBlinkDuration: 150 * time.Millisecond,
			Timeout:          3 * time.Second,
			RequiredBlinks:   1,
		},
	})
	if err != nil {
		t.Fatalf("could not create controller: %v", err)
	}
	return ctrl
}

func newTestPipeline(faces detect.FaceDetector) *Pipeline {
	return NewPipeline(faces, feature.NewExtractor(30))
}

// multipartFrames builds a multipart body with a name field and one
// frames file per provided payload.
func multipartFrames(t *testing.T, name string, frames ...[]byte) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if name != "" {
		if err := writer.WriteField("name", name); err != nil {
			t.Fatalf("failed to write name field: %v", err)
		}
	}
	for i, frame := range frames {
		part, err := writer.CreateFormFile("frames", "frame.jpg")
		if err != nil {
			t.Fatalf("failed to create frame part %d: %v", i, err)
		}
		if _, err := part.Write(frame); err != nil {
			t.Fatalf("failed to write frame part %d: %v", i, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return &body, writer.FormDataContentType()
}
