package detect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientDetectFaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect/faces" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("failed to parse multipart form: %v", err)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}

		resp := detectResponse{
			Count: 1,
			Regions: []Region{
				{X: 10, Y: 20, Width: 100, Height: 120, Score: 0.98},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	// Minimal JPEG magic bytes so MIME sniffing picks image/jpeg.
	frame := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46}

	regions, err := client.DetectFaces(context.Background(), frame)
	if err != nil {
		t.Fatalf("DetectFaces failed: %v", err)
	}

	if len(regions) != 1 {
		t.Fatalf("expected 1 region, got %d", len(regions))
	}
	if regions[0].X != 10 || regions[0].Width != 100 {
		t.Errorf("unexpected region: %+v", regions[0])
	}
}

func TestClientDetectEyesEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect/eyes" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(detectResponse{Count: 0, Regions: []Region{}})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	regions, err := client.DetectEyes(context.Background(), []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46})
	if err != nil {
		t.Fatalf("DetectEyes failed: %v", err)
	}
	if len(regions) != 0 {
		t.Errorf("expected no regions, got %d", len(regions))
	}
}

func TestClientServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.DetectFaces(context.Background(), []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46}); err == nil {
		t.Error("expected error on 500 response")
	}
}

func TestRegionOpenness(t *testing.T) {
	tests := []struct {
		name     string
		region   Region
		expected float64
	}{
		{"wide open eye", Region{Width: 40, Height: 20}, 0.5},
		{"closing eye", Region{Width: 40, Height: 8}, 0.2},
		{"zero width", Region{Width: 0, Height: 10}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.region.Openness(); got != tc.expected {
				t.Errorf("Openness() = %f; want %f", got, tc.expected)
			}
		})
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"bmp", []byte{0x42, 0x4D, 0, 0, 0, 0, 0, 0}, "image/bmp"},
		{"too short", []byte{0x01}, "application/octet-stream"},
		{"unknown", []byte{0, 1, 2, 3, 4, 5, 6, 7}, "application/octet-stream"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := detectMIMEType(tc.data); got != tc.expected {
				t.Errorf("detectMIMEType = %s; want %s", got, tc.expected)
			}
		})
	}
}
