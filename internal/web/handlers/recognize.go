package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/match"
)

// RecognizeHandler classifies an uploaded frame against the enrolled
// identities.
type RecognizeHandler struct {
	controller *attendance.Controller
	pipeline   *Pipeline
}

// NewRecognizeHandler creates a recognition handler.
func NewRecognizeHandler(controller *attendance.Controller, pipeline *Pipeline) *RecognizeHandler {
	return &RecognizeHandler{controller: controller, pipeline: pipeline}
}

// IdentityPayload is the wire form of an enrolled identity.
type IdentityPayload struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// RecognizeResponse reports the outcome of a recognition request.
// Distance is always the minimum found, reported even on no-match. A
// true NoCandidates distinguishes an empty store from a populated one
// where nothing passed the threshold.
type RecognizeResponse struct {
	Matched      bool             `json:"matched"`
	Identity     *IdentityPayload `json:"identity,omitempty"`
	Distance     float64          `json:"distance"`
	Confidence   float64          `json:"confidence"`
	NoCandidates bool             `json:"no_candidates,omitempty"`
}

// Recognize consumes a multipart form with an "image" file.
func (h *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	data, err := readFormFile(r, "image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "image file is required")
		return
	}

	ctx := r.Context()
	vec, err := h.pipeline.VectorFromFrame(ctx, data)
	if errors.Is(err, ErrNoFace) {
		respondError(w, http.StatusUnprocessableEntity, "no face detected in image")
		return
	}
	if err != nil {
		log.Printf("recognition extraction failed: %v", err)
		respondError(w, http.StatusUnprocessableEntity, "could not extract face features")
		return
	}

	result, err := h.controller.Recognize(ctx, vec)
	if errors.Is(err, match.ErrNoCandidates) {
		respondJSON(w, http.StatusOK, RecognizeResponse{NoCandidates: true})
		return
	}
	if err != nil {
		log.Printf("recognition failed: %v", err)
		respondError(w, http.StatusInternalServerError, "recognition failed")
		return
	}

	resp := RecognizeResponse{
		Matched:    result.Matched,
		Distance:   result.Distance,
		Confidence: result.Confidence,
	}
	if result.Matched {
		resp.Identity = &IdentityPayload{ID: result.Identity.ID, Name: result.Identity.Name}
	}
	respondJSON(w, http.StatusOK, resp)
}
