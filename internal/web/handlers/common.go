package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/detect"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// maxUploadBytes bounds a single uploaded frame.
const maxUploadBytes = 16 << 20

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// readFormFile reads one uploaded file from a multipart form.
func readFormFile(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("missing form file %q: %w", field, err)
	}
	defer file.Close()

	return readAll(file)
}

// readAll drains a reader with the upload size cap applied.
func readAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxUploadBytes))
}

// primaryFace picks the detection to use when a frame contains several
// faces: the one with the largest area, score breaking exact ties.
func primaryFace(regions []detect.Region) (detect.Region, bool) {
	if len(regions) == 0 {
		return detect.Region{}, false
	}
	best := regions[0]
	for _, reg := range regions[1:] {
		area, bestArea := reg.Width*reg.Height, best.Width*best.Height
		if area > bestArea || (area == bestArea && reg.Score > best.Score) {
			best = reg
		}
	}
	return best, true
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
