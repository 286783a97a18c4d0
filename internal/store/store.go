// Package store persists enrolled identities and attendance records.
// Two backends exist: a file backend mirroring the classic metadata-list
// plus vector-array pairing, and a PostgreSQL backend using pgvector.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/kozaktomas/face-attendance/internal/vector"
)

var (
	// ErrStorageInconsistent indicates the identity metadata and the
	// vector array disagree on length. The store refuses to auto-repair:
	// truncating or padding could silently corrupt matching for
	// unrelated identities, so the condition is surfaced instead.
	ErrStorageInconsistent = errors.New("identity metadata and vector array are inconsistent")

	// ErrIdentityNotFound indicates no identity exists with the given ID.
	ErrIdentityNotFound = errors.New("identity not found")
)

// Identity is one enrolled person. The ID is assigned at first enrollment
// and stays stable for the identity's lifetime; re-enrollment replaces the
// vector but never the ID.
type Identity struct {
	ID         int64             `json:"id"`
	Name       string            `json:"name"`
	Vector     vector.FaceVector `json:"-"`
	EnrolledAt time.Time         `json:"enrolled_at"`
}

// EventType distinguishes punch directions.
type EventType string

const (
	EventPunchIn  EventType = "punch_in"
	EventPunchOut EventType = "punch_out"
)

// Valid reports whether the event type is one of the known directions.
func (e EventType) Valid() bool {
	return e == EventPunchIn || e == EventPunchOut
}

// AttendanceRecord is one accepted punch event. Records are append-only
// and never mutated after creation.
type AttendanceRecord struct {
	IdentityID int64     `json:"identity_id"`
	Name       string    `json:"name"`
	Event      EventType `json:"event"`
	Timestamp  time.Time `json:"timestamp"`
}

// IdentityReader provides read access to enrolled identities.
type IdentityReader interface {
	// ListIdentities returns all identities in enrollment order.
	ListIdentities(ctx context.Context) ([]Identity, error)
	// GetIdentity retrieves one identity by ID.
	GetIdentity(ctx context.Context, id int64) (*Identity, error)
	// CountIdentities returns the number of enrolled identities.
	CountIdentities(ctx context.Context) (int, error)
}

// IdentityWriter provides write access to enrolled identities.
type IdentityWriter interface {
	IdentityReader

	// CreateIdentity stores a new identity and assigns its ID.
	CreateIdentity(ctx context.Context, name string, vec vector.FaceVector) (*Identity, error)
	// UpdateIdentityVector replaces the enrolled vector of an existing
	// identity, keeping ID and name.
	UpdateIdentityVector(ctx context.Context, id int64, vec vector.FaceVector) error
}

// AttendanceLog provides access to the append-only punch event sequence.
type AttendanceLog interface {
	// AppendRecord appends one accepted punch event.
	AppendRecord(ctx context.Context, rec AttendanceRecord) error
	// ListRecords returns all records in append order.
	ListRecords(ctx context.Context) ([]AttendanceRecord, error)
	// RecordsOn returns records whose timestamp falls on the given day
	// in that timestamp's location.
	RecordsOn(ctx context.Context, day time.Time) ([]AttendanceRecord, error)
}

// Store combines identity storage with the attendance log.
type Store interface {
	IdentityWriter
	AttendanceLog

	Close() error
}
