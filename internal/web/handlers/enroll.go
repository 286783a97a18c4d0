package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/enroll"
	"github.com/kozaktomas/face-attendance/internal/store"
)

// nearDuplicateWarnDistance flags enrollments suspiciously close to an
// already enrolled identity. Advisory only, the enrollment proceeds.
const nearDuplicateWarnDistance = 2.0

// EnrollHandler handles identity enrollment from uploaded frames.
type EnrollHandler struct {
	store     store.IdentityWriter
	neighbors *store.NeighborIndex
	pipeline  *Pipeline
	params    enroll.Params
}

// NewEnrollHandler creates an enrollment handler.
func NewEnrollHandler(st store.IdentityWriter, neighbors *store.NeighborIndex, pipeline *Pipeline, params enroll.Params) *EnrollHandler {
	return &EnrollHandler{store: st, neighbors: neighbors, pipeline: pipeline, params: params}
}

// EnrollResponse reports the outcome of an enrollment request.
type EnrollResponse struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	EnrolledAt time.Time `json:"enrolled_at"`
	Samples    int       `json:"samples"`
	// Warning is set when the new identity is very close to an existing
	// one, which usually means the same person enrolled twice.
	Warning string `json:"warning,omitempty"`
}

// Enroll consumes a multipart form with a "name" field and one or more
// "frames" files, runs each frame through the extraction pipeline and
// enrolls the averaged vector.
func (h *EnrollHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	name := r.FormValue("name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	files := r.MultipartForm.File["frames"]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "at least one frame is required")
		return
	}

	ctx := r.Context()
	session := enroll.NewSession(name, h.params)

	var progress enroll.Progress
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			respondError(w, http.StatusBadRequest, "could not read uploaded frame")
			return
		}
		data, err := readAll(file)
		file.Close()
		if err != nil {
			respondError(w, http.StatusBadRequest, "could not read uploaded frame")
			return
		}

		vec, err := h.pipeline.VectorFromSoloFrame(ctx, data)
		switch {
		case errors.Is(err, ErrNoFace), errors.Is(err, ErrMultipleFaces):
			// Only frames with exactly one face advance the session.
			continue
		case err != nil:
			// Detected but unusable face; counts against the budget.
			log.Printf("enrollment frame for %s rejected: %v", sanitizeForLog(name), err)
			progress = session.Feed(nil)
		default:
			progress = session.Feed(vec)
		}
		if progress.State != enroll.StatePending {
			break
		}
	}

	if progress.State == enroll.StatePending {
		session.Abandon()
		progress = session.Feed(nil)
	}
	if progress.State == enroll.StateFailed {
		respondError(w, http.StatusUnprocessableEntity,
			progressError(progress, "enrollment incomplete"))
		return
	}

	warning := h.nearDuplicateWarning(progress)

	ident, err := h.store.CreateIdentity(ctx, name, progress.Vector)
	if err != nil {
		log.Printf("failed to store identity %s: %v", sanitizeForLog(name), err)
		respondError(w, http.StatusInternalServerError, "failed to store identity")
		return
	}
	h.neighbors.Add(*ident)

	respondJSON(w, http.StatusCreated, EnrollResponse{
		ID:         ident.ID,
		Name:       ident.Name,
		EnrolledAt: ident.EnrolledAt,
		Samples:    progress.Captured,
		Warning:    warning,
	})
}

// nearDuplicateWarning checks the advisory neighbor index for an
// existing identity close to the freshly aggregated vector.
func (h *EnrollHandler) nearDuplicateWarning(progress enroll.Progress) string {
	near := h.neighbors.Nearest(progress.Vector, 1)
	if len(near) > 0 && near[0].Distance < nearDuplicateWarnDistance {
		return "very similar to already enrolled identity " + near[0].Name
	}
	return ""
}

func progressError(progress enroll.Progress, fallback string) string {
	if progress.Err != nil {
		return progress.Err.Error()
	}
	return fallback
}
