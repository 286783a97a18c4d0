package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/detect"
	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/vector"
)

func punchOpenEyes() []detect.Region {
	return []detect.Region{
		{X: 10, Y: 10, Width: 40, Height: 20},
		{X: 70, Y: 10, Width: 40, Height: 20},
	}
}

func punchClosedEyes() []detect.Region {
	return []detect.Region{
		{X: 10, Y: 18, Width: 40, Height: 4},
		{X: 70, Y: 18, Width: 40, Height: 4},
	}
}

// blinkFrames is a frame sequence that satisfies the liveness check.
func blinkFrames() []PunchFrame {
	return []PunchFrame{
		{Eyes: punchOpenEyes(), TimestampMs: 0},
		{Eyes: punchClosedEyes(), TimestampMs: 100},
		{Eyes: punchClosedEyes(), TimestampMs: 200},
		{Eyes: punchClosedEyes(), TimestampMs: 300},
		{Eyes: punchOpenEyes(), TimestampMs: 400},
	}
}

func enrollTestIdentity(t *testing.T, st store.Store, name string) *store.Identity {
	t.Helper()
	vec := make(vector.FaceVector, vector.Dim)
	for i := range vec {
		vec[i] = 0.5
	}
	ident, err := st.CreateIdentity(context.Background(), name, vec)
	if err != nil {
		t.Fatalf("enrollment failed: %v", err)
	}
	return ident
}

func postPunch(t *testing.T, h *PunchHandler, req PunchRequest) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	httpReq := httptest.NewRequest("POST", "/api/v1/attendance/punch", bytes.NewReader(payload))
	httpReq.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	h.Punch(recorder, httpReq)
	return recorder
}

func TestPunch_RecordsEvent(t *testing.T) {
	st := newTestStore(t)
	ident := enrollTestIdentity(t, st, "Alice")
	h := NewPunchHandler(newTestController(t, st))

	recorder := postPunch(t, h, PunchRequest{
		IdentityID: ident.ID,
		Event:      store.EventPunchIn,
		Frames:     blinkFrames(),
	})

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, recorder.Code, recorder.Body.String())
	}

	var resp PunchResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if !resp.Recorded || resp.Record == nil {
		t.Fatalf("expected recorded punch, got %+v", resp)
	}
	if resp.Record.IdentityID != ident.ID || resp.Record.Event != store.EventPunchIn {
		t.Errorf("unexpected record: %+v", resp.Record)
	}
	if resp.Blinks < 1 {
		t.Errorf("expected at least one blink, got %d", resp.Blinks)
	}

	records, err := st.ListRecords(context.Background())
	if err != nil {
		t.Fatalf("list records failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 persisted record, got %d", len(records))
	}
}

func TestPunch_CooldownReturnsTooManyRequests(t *testing.T) {
	st := newTestStore(t)
	ident := enrollTestIdentity(t, st, "Alice")
	h := NewPunchHandler(newTestController(t, st))

	first := postPunch(t, h, PunchRequest{
		IdentityID: ident.ID, Event: store.EventPunchIn, Frames: blinkFrames(),
	})
	if first.Code != http.StatusOK {
		t.Fatalf("setup punch failed with %d", first.Code)
	}

	second := postPunch(t, h, PunchRequest{
		IdentityID: ident.ID, Event: store.EventPunchOut, Frames: blinkFrames(),
	})
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d, got %d", http.StatusTooManyRequests, second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on cooldown rejection")
	}
}

func TestPunch_NoBlinkFails(t *testing.T) {
	st := newTestStore(t)
	ident := enrollTestIdentity(t, st, "Alice")
	h := NewPunchHandler(newTestController(t, st))

	// Eyes stay open for every frame.
	frames := make([]PunchFrame, 10)
	for i := range frames {
		frames[i] = PunchFrame{Eyes: punchOpenEyes(), TimestampMs: int64(i) * 100}
	}

	recorder := postPunch(t, h, PunchRequest{
		IdentityID: ident.ID, Event: store.EventPunchIn, Frames: frames,
	})

	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, recorder.Code)
	}

	records, _ := st.ListRecords(context.Background())
	if len(records) != 0 {
		t.Errorf("failed liveness must not record, got %d records", len(records))
	}
}

func TestPunch_TimeoutFails(t *testing.T) {
	st := newTestStore(t)
	ident := enrollTestIdentity(t, st, "Alice")
	h := NewPunchHandler(newTestController(t, st))

	// Second frame lands past the 3s liveness timeout.
	frames := []PunchFrame{
		{Eyes: punchOpenEyes(), TimestampMs: 0},
		{Eyes: punchOpenEyes(), TimestampMs: 4000},
	}

	recorder := postPunch(t, h, PunchRequest{
		IdentityID: ident.ID, Event: store.EventPunchIn, Frames: frames,
	})

	if recorder.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, recorder.Code)
	}
}

func TestPunch_UnknownIdentity(t *testing.T) {
	st := newTestStore(t)
	h := NewPunchHandler(newTestController(t, st))

	recorder := postPunch(t, h, PunchRequest{
		IdentityID: 999, Event: store.EventPunchIn, Frames: blinkFrames(),
	})

	if recorder.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, recorder.Code)
	}
}

func TestPunch_InvalidEvent(t *testing.T) {
	st := newTestStore(t)
	ident := enrollTestIdentity(t, st, "Alice")
	h := NewPunchHandler(newTestController(t, st))

	recorder := postPunch(t, h, PunchRequest{
		IdentityID: ident.ID, Event: store.EventType("lunch"), Frames: blinkFrames(),
	})

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, recorder.Code)
	}
}

func TestPunch_RequiresFrames(t *testing.T) {
	st := newTestStore(t)
	ident := enrollTestIdentity(t, st, "Alice")
	h := NewPunchHandler(newTestController(t, st))

	recorder := postPunch(t, h, PunchRequest{
		IdentityID: ident.ID, Event: store.EventPunchIn,
	})

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, recorder.Code)
	}
}
