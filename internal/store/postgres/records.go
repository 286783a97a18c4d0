package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/store"
)

// AppendRecord appends one accepted punch event. The identity name is
// resolved on read, so a later rename shows up in historical listings.
func (s *Store) AppendRecord(ctx context.Context, rec store.AttendanceRecord) error {
	if !rec.Event.Valid() {
		return fmt.Errorf("invalid event type %q", rec.Event)
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO attendance_records (identity_id, event, recorded_at)
		VALUES ($1, $2, $3)
	`, rec.IdentityID, string(rec.Event), rec.Timestamp)
	if err != nil {
		return fmt.Errorf("insert attendance record: %w", err)
	}
	return nil
}

// ListRecords returns all records in append order.
func (s *Store) ListRecords(ctx context.Context) ([]store.AttendanceRecord, error) {
	return s.queryRecords(ctx, `
		SELECT r.identity_id, i.name, r.event, r.recorded_at
		FROM attendance_records r
		JOIN identities i ON i.id = r.identity_id
		ORDER BY r.id
	`)
}

// RecordsOn returns records whose timestamp falls on the given day in
// that day's location.
func (s *Store) RecordsOn(ctx context.Context, day time.Time) ([]store.AttendanceRecord, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	return s.queryRecords(ctx, `
		SELECT r.identity_id, i.name, r.event, r.recorded_at
		FROM attendance_records r
		JOIN identities i ON i.id = r.identity_id
		WHERE r.recorded_at >= $1 AND r.recorded_at < $2
		ORDER BY r.id
	`, start, end)
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]store.AttendanceRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance records: %w", err)
	}
	defer rows.Close()

	var records []store.AttendanceRecord
	for rows.Next() {
		var rec store.AttendanceRecord
		var event string
		if err := rows.Scan(&rec.IdentityID, &rec.Name, &event, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		rec.Event = store.EventType(event)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance records: %w", err)
	}
	return records, nil
}
