package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/store"
)

// AttendanceHandler serves attendance summaries.
type AttendanceHandler struct {
	controller *attendance.Controller
}

// NewAttendanceHandler creates an attendance handler.
func NewAttendanceHandler(controller *attendance.Controller) *AttendanceHandler {
	return &AttendanceHandler{controller: controller}
}

// dayStatusPayload is the wire form of one identity's day summary.
type dayStatusPayload struct {
	IdentityID int64                    `json:"identity_id"`
	Name       string                   `json:"name"`
	Present    bool                     `json:"present"`
	LastEvent  store.EventType          `json:"last_event,omitempty"`
	WorkedMs   int64                    `json:"worked_ms"`
	Records    []store.AttendanceRecord `json:"records"`
}

func toDayStatusPayload(status attendance.DayStatus) dayStatusPayload {
	records := status.Records
	if records == nil {
		records = []store.AttendanceRecord{}
	}
	return dayStatusPayload{
		IdentityID: status.IdentityID,
		Name:       status.Name,
		Present:    status.Present,
		LastEvent:  status.LastEvent,
		WorkedMs:   status.Worked.Milliseconds(),
		Records:    records,
	}
}

// Today returns per-identity summaries for the current day.
func (h *AttendanceHandler) Today(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.controller.DaySummary(r.Context(), time.Now())
	if err != nil {
		log.Printf("failed to build day summary: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to build day summary")
		return
	}

	payload := make([]dayStatusPayload, 0, len(summaries))
	for _, status := range summaries {
		payload = append(payload, toDayStatusPayload(status))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"date":       time.Now().Format("2006-01-02"),
		"identities": payload,
	})
}

// Status returns one identity's summary for the current day.
func (h *AttendanceHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid identity id")
		return
	}

	status, err := h.controller.Status(r.Context(), id, time.Now())
	if errors.Is(err, store.ErrIdentityNotFound) {
		respondError(w, http.StatusNotFound, "identity not found")
		return
	}
	if err != nil {
		log.Printf("failed to get status for identity %d: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to get attendance status")
		return
	}

	respondJSON(w, http.StatusOK, toDayStatusPayload(status))
}
