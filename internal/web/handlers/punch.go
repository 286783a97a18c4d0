package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/detect"
	"github.com/kozaktomas/face-attendance/internal/store"
)

// PunchHandler runs the liveness-gated punch flow.
type PunchHandler struct {
	controller *attendance.Controller
}

// NewPunchHandler creates a punch handler.
func NewPunchHandler(controller *attendance.Controller) *PunchHandler {
	return &PunchHandler{controller: controller}
}

// PunchFrame is one observed video frame: the detected eye regions and
// the frame's offset from the start of the capture.
type PunchFrame struct {
	Eyes        []detect.Region `json:"eyes"`
	TimestampMs int64           `json:"t_ms"`
}

// PunchRequest asks to record an attendance event for an already
// recognized identity, backed by the captured liveness frames.
type PunchRequest struct {
	IdentityID int64           `json:"identity_id"`
	Event      store.EventType `json:"event"`
	Frames     []PunchFrame    `json:"frames"`
}

// PunchResponse reports an accepted punch.
type PunchResponse struct {
	Recorded bool                    `json:"recorded"`
	Record   *store.AttendanceRecord `json:"record,omitempty"`
	Blinks   int                     `json:"blinks"`
	Message  string                  `json:"message,omitempty"`
}

// Punch validates the request, opens a punch session and replays the
// captured frames through it. The whole capture arrives in one request;
// the liveness clock runs on the per-frame offsets.
func (h *PunchHandler) Punch(w http.ResponseWriter, r *http.Request) {
	var req PunchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req.Frames) == 0 {
		respondError(w, http.StatusBadRequest, "at least one frame is required")
		return
	}

	ctx := r.Context()
	start := time.Now()

	sessionID, err := h.controller.BeginPunch(ctx, req.IdentityID, req.Event, start)
	var cooldownErr *attendance.CooldownError
	switch {
	case errors.As(err, &cooldownErr):
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(cooldownErr.Remaining.Seconds())+1))
		respondError(w, http.StatusTooManyRequests, cooldownErr.Error())
		return
	case errors.Is(err, store.ErrIdentityNotFound):
		respondError(w, http.StatusNotFound, "identity not found")
		return
	case err != nil:
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	for _, frame := range req.Frames {
		result, err := h.controller.Poll(ctx, sessionID, start.Add(time.Duration(frame.TimestampMs)*time.Millisecond), frame.Eyes)
		if errors.Is(err, attendance.ErrLivenessTimeout) {
			respondError(w, http.StatusUnprocessableEntity, attendance.ErrLivenessTimeout.Error())
			return
		}
		if err != nil {
			log.Printf("punch poll failed for identity %d: %v", req.IdentityID, err)
			respondError(w, http.StatusInternalServerError, "failed to record punch")
			return
		}
		if result.Done {
			respondJSON(w, http.StatusOK, PunchResponse{
				Recorded: true,
				Record:   result.Record,
				Blinks:   result.Liveness.Blinks,
				Message:  result.Liveness.Message,
			})
			return
		}
	}

	// Frames exhausted with the session still pending.
	h.controller.Abandon(sessionID)
	respondError(w, http.StatusUnprocessableEntity, attendance.ErrLivenessFailed.Error())
}
