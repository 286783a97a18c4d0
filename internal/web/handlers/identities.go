package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/store"
)

// IdentitiesHandler serves the enrolled identity listing.
type IdentitiesHandler struct {
	store     store.IdentityReader
	neighbors *store.NeighborIndex
}

// NewIdentitiesHandler creates an identities handler.
func NewIdentitiesHandler(st store.IdentityReader, neighbors *store.NeighborIndex) *IdentitiesHandler {
	return &IdentitiesHandler{store: st, neighbors: neighbors}
}

// IdentitySummary is the wire form of one enrolled identity.
type IdentitySummary struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// List returns all enrolled identities in enrollment order.
func (h *IdentitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	identities, err := h.store.ListIdentities(r.Context())
	if err != nil {
		log.Printf("failed to list identities: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list identities")
		return
	}

	summaries := make([]IdentitySummary, 0, len(identities))
	for _, ident := range identities {
		summaries = append(summaries, IdentitySummary{
			ID: ident.ID, Name: ident.Name, EnrolledAt: ident.EnrolledAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"identities": summaries,
		"count":      len(summaries),
	})
}

// Get returns one identity by ID.
func (h *IdentitiesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid identity id")
		return
	}

	ident, err := h.store.GetIdentity(r.Context(), id)
	if errors.Is(err, store.ErrIdentityNotFound) {
		respondError(w, http.StatusNotFound, "identity not found")
		return
	}
	if err != nil {
		log.Printf("failed to get identity %d: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to get identity")
		return
	}

	respondJSON(w, http.StatusOK, IdentitySummary{
		ID: ident.ID, Name: ident.Name, EnrolledAt: ident.EnrolledAt,
	})
}

// SimilarEntry is one advisory nearest-neighbor result.
type SimilarEntry struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}

// Similar returns the identities nearest to the given one, from the
// advisory neighbor index. Useful for spotting double enrollments.
func (h *IdentitiesHandler) Similar(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid identity id")
		return
	}

	ident, err := h.store.GetIdentity(r.Context(), id)
	if errors.Is(err, store.ErrIdentityNotFound) {
		respondError(w, http.StatusNotFound, "identity not found")
		return
	}
	if err != nil {
		log.Printf("failed to get identity %d: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to get identity")
		return
	}

	limit := 5
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 50 {
		limit = l
	}

	// Request one extra neighbor since the identity matches itself.
	entries := make([]SimilarEntry, 0, limit)
	for _, n := range h.neighbors.Nearest(ident.Vector, limit+1) {
		if n.ID == ident.ID {
			continue
		}
		entries = append(entries, SimilarEntry{ID: n.ID, Name: n.Name, Distance: n.Distance})
		if len(entries) == limit {
			break
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"identity": IdentitySummary{ID: ident.ID, Name: ident.Name, EnrolledAt: ident.EnrolledAt},
		"similar":  entries,
	})
}
