package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/store"
)

func attendanceRouter(h *AttendanceHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/attendance/today", h.Today)
	r.Get("/identities/{id}/status", h.Status)
	return r
}

func TestAttendanceToday(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ident, _ := st.CreateIdentity(ctx, "Alice", seedVector(0.1))

	now := time.Now()
	records := []store.AttendanceRecord{
		{IdentityID: ident.ID, Name: ident.Name, Event: store.EventPunchIn, Timestamp: now.Add(-4 * time.Hour)},
		{IdentityID: ident.ID, Name: ident.Name, Event: store.EventPunchOut, Timestamp: now.Add(-time.Hour)},
	}
	for _, rec := range records {
		if err := st.AppendRecord(ctx, rec); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	router := attendanceRouter(NewAttendanceHandler(newTestController(t, st)))

	req := httptest.NewRequest("GET", "/attendance/today", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, recorder.Code, recorder.Body.String())
	}

	var resp struct {
		Date       string             `json:"date"`
		Identities []dayStatusPayload `json:"identities"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(resp.Identities) != 1 {
		t.Fatalf("expected 1 identity in summary, got %d", len(resp.Identities))
	}

	got := resp.Identities[0]
	if got.IdentityID != ident.ID || got.Present {
		t.Errorf("unexpected summary: %+v", got)
	}
	if got.WorkedMs != (3 * time.Hour).Milliseconds() {
		t.Errorf("worked = %dms, want 3h", got.WorkedMs)
	}
}

func TestAttendanceStatus(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ident, _ := st.CreateIdentity(ctx, "Alice", seedVector(0.1))

	err := st.AppendRecord(ctx, store.AttendanceRecord{
		IdentityID: ident.ID, Name: ident.Name, Event: store.EventPunchIn, Timestamp: time.Now().Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}

	router := attendanceRouter(NewAttendanceHandler(newTestController(t, st)))

	req := httptest.NewRequest("GET", "/identities/1/status", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}

	var resp dayStatusPayload
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if !resp.Present || resp.LastEvent != store.EventPunchIn {
		t.Errorf("unexpected status: %+v", resp)
	}
}

func TestAttendanceStatus_UnknownIdentity(t *testing.T) {
	st := newTestStore(t)
	router := attendanceRouter(NewAttendanceHandler(newTestController(t, st)))

	req := httptest.NewRequest("GET", "/identities/7/status", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, recorder.Code)
	}
}
