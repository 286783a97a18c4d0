package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/vector"
)

func testVector(seed float32) vector.FaceVector {
	v := make(vector.FaceVector, vector.Dim)
	for i := range v {
		v[i] = seed + float32(i)/float32(vector.Dim)
	}
	return v
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenFileStore(dir)
	if err != nil {
		t.Fatalf("OpenFileStore failed: %v", err)
	}

	alice, err := s.CreateIdentity(ctx, "Alice", testVector(0.1))
	if err != nil {
		t.Fatalf("CreateIdentity failed: %v", err)
	}
	bob, err := s.CreateIdentity(ctx, "Bob", testVector(0.5))
	if err != nil {
		t.Fatalf("CreateIdentity failed: %v", err)
	}

	if alice.ID == bob.ID {
		t.Fatal("identities share an ID")
	}

	// Reopen and verify both files agree.
	reopened, err := OpenFileStore(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}

	identities, err := reopened.ListIdentities(ctx)
	if err != nil {
		t.Fatalf("ListIdentities failed: %v", err)
	}
	if len(identities) != 2 {
		t.Fatalf("expected 2 identities, got %d", len(identities))
	}
	if identities[0].Name != "Alice" || identities[1].Name != "Bob" {
		t.Errorf("enrollment order not preserved: %s, %s", identities[0].Name, identities[1].Name)
	}

	got, err := reopened.GetIdentity(ctx, alice.ID)
	if err != nil {
		t.Fatalf("GetIdentity failed: %v", err)
	}
	if vector.EuclideanDistance(got.Vector, testVector(0.1)) != 0 {
		t.Error("vector changed across reload")
	}
}

func TestFileStoreIDsSurviveReload(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenFileStore(dir)
	if err != nil {
		t.Fatalf("OpenFileStore failed: %v", err)
	}
	first, _ := s.CreateIdentity(ctx, "First", testVector(0.1))

	reopened, err := OpenFileStore(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	second, err := reopened.CreateIdentity(ctx, "Second", testVector(0.2))
	if err != nil {
		t.Fatalf("CreateIdentity after reload failed: %v", err)
	}

	if second.ID <= first.ID {
		t.Errorf("ID sequence regressed after reload: %d then %d", first.ID, second.ID)
	}
}

func TestFileStoreUpdateVectorKeepsID(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenFileStore(dir)
	if err != nil {
		t.Fatalf("OpenFileStore failed: %v", err)
	}
	ident, _ := s.CreateIdentity(ctx, "Alice", testVector(0.1))

	if err := s.UpdateIdentityVector(ctx, ident.ID, testVector(0.9)); err != nil {
		t.Fatalf("UpdateIdentityVector failed: %v", err)
	}

	got, err := s.GetIdentity(ctx, ident.ID)
	if err != nil {
		t.Fatalf("GetIdentity failed: %v", err)
	}
	if got.Name != "Alice" {
		t.Errorf("name changed on re-enrollment: %s", got.Name)
	}
	if vector.EuclideanDistance(got.Vector, testVector(0.9)) != 0 {
		t.Error("vector was not replaced")
	}

	if err := s.UpdateIdentityVector(ctx, 9999, testVector(0.1)); !errors.Is(err, ErrIdentityNotFound) {
		t.Errorf("expected ErrIdentityNotFound, got %v", err)
	}
}

func TestFileStoreInconsistencyDetected(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenFileStore(dir)
	if err != nil {
		t.Fatalf("OpenFileStore failed: %v", err)
	}
	if _, err := s.CreateIdentity(ctx, "Alice", testVector(0.1)); err != nil {
		t.Fatalf("CreateIdentity failed: %v", err)
	}
	if _, err := s.CreateIdentity(ctx, "Bob", testVector(0.2)); err != nil {
		t.Fatalf("CreateIdentity failed: %v", err)
	}

	// Drop one metadata entry while leaving both vectors in place.
	metaPath := filepath.Join(dir, identitiesFile)
	data, err := os.ReadFile(metaPath)
	if err != nil {
		t.Fatalf("reading metadata: %v", err)
	}
	var metas []identityMeta
	if err := json.Unmarshal(data, &metas); err != nil {
		t.Fatalf("parsing metadata: %v", err)
	}
	truncated, _ := json.Marshal(metas[:1])
	if err := os.WriteFile(metaPath, truncated, 0o644); err != nil {
		t.Fatalf("writing truncated metadata: %v", err)
	}

	if _, err := OpenFileStore(dir); !errors.Is(err, ErrStorageInconsistent) {
		t.Errorf("expected ErrStorageInconsistent, got %v", err)
	}
}

func TestFileStoreTruncatedVectorFile(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenFileStore(dir)
	if err != nil {
		t.Fatalf("OpenFileStore failed: %v", err)
	}
	if _, err := s.CreateIdentity(ctx, "Alice", testVector(0.1)); err != nil {
		t.Fatalf("CreateIdentity failed: %v", err)
	}

	vecPath := filepath.Join(dir, vectorsFile)
	data, err := os.ReadFile(vecPath)
	if err != nil {
		t.Fatalf("reading vectors: %v", err)
	}
	if err := os.WriteFile(vecPath, data[:len(data)-7], 0o644); err != nil {
		t.Fatalf("truncating vectors: %v", err)
	}

	if _, err := OpenFileStore(dir); !errors.Is(err, ErrStorageInconsistent) {
		t.Errorf("expected ErrStorageInconsistent, got %v", err)
	}
}

func TestFileStoreAttendanceLog(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenFileStore(dir)
	if err != nil {
		t.Fatalf("OpenFileStore failed: %v", err)
	}

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)

	records := []AttendanceRecord{
		{IdentityID: 1, Name: "Alice", Event: EventPunchIn, Timestamp: yesterday},
		{IdentityID: 1, Name: "Alice", Event: EventPunchIn, Timestamp: now},
		{IdentityID: 1, Name: "Alice", Event: EventPunchOut, Timestamp: now.Add(8 * time.Hour)},
	}
	for _, rec := range records {
		if err := s.AppendRecord(ctx, rec); err != nil {
			t.Fatalf("AppendRecord failed: %v", err)
		}
	}

	if err := s.AppendRecord(ctx, AttendanceRecord{Event: "lunch"}); err == nil {
		t.Error("unknown event type should be rejected")
	}

	reopened, err := OpenFileStore(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}

	all, err := reopened.ListRecords(ctx)
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}

	today, err := reopened.RecordsOn(ctx, now)
	if err != nil {
		t.Fatalf("RecordsOn failed: %v", err)
	}
	if len(today) != 2 {
		t.Errorf("expected 2 records on %v, got %d", now, len(today))
	}
}
