package attendance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kozaktomas/face-attendance/internal/store"
)

// DayStatus summarizes one identity's punches on a single day. Worked
// sums closed punch-in/punch-out pairs; an open interval at the end of
// the day is reflected in Present, not in Worked.
type DayStatus struct {
	IdentityID int64                    `json:"identity_id"`
	Name       string                   `json:"name"`
	Records    []store.AttendanceRecord `json:"records"`
	LastEvent  store.EventType          `json:"last_event"`
	Present    bool                     `json:"present"`
	Worked     time.Duration            `json:"worked"`
}

// Status returns one identity's summary for the day containing the
// given time.
func (c *Controller) Status(ctx context.Context, identityID int64, day time.Time) (DayStatus, error) {
	ident, err := c.store.GetIdentity(ctx, identityID)
	if err != nil {
		return DayStatus{}, err
	}

	records, err := c.store.RecordsOn(ctx, day)
	if err != nil {
		return DayStatus{}, fmt.Errorf("could not load attendance records: %w", err)
	}

	status := DayStatus{IdentityID: ident.ID, Name: ident.Name}
	for _, rec := range records {
		if rec.IdentityID == identityID {
			status.Records = append(status.Records, rec)
		}
	}
	summarize(&status)
	return status, nil
}

// DaySummary returns the per-identity summaries for the day containing
// the given time, ordered by identity ID. Identities without punches
// that day are omitted.
func (c *Controller) DaySummary(ctx context.Context, day time.Time) ([]DayStatus, error) {
	records, err := c.store.RecordsOn(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("could not load attendance records: %w", err)
	}

	byIdentity := make(map[int64]*DayStatus)
	for _, rec := range records {
		status, ok := byIdentity[rec.IdentityID]
		if !ok {
			status = &DayStatus{IdentityID: rec.IdentityID, Name: rec.Name}
			byIdentity[rec.IdentityID] = status
		}
		status.Records = append(status.Records, rec)
	}

	summaries := make([]DayStatus, 0, len(byIdentity))
	for _, status := range byIdentity {
		summarize(status)
		summaries = append(summaries, *status)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].IdentityID < summaries[j].IdentityID
	})
	return summaries, nil
}

// summarize derives LastEvent, Present and Worked from the record list.
// Records arrive in append order; an unmatched punch-out is ignored and
// an unmatched trailing punch-in leaves the identity present.
func summarize(status *DayStatus) {
	var openIn time.Time
	var open bool
	for _, rec := range status.Records {
		status.LastEvent = rec.Event
		switch rec.Event {
		case store.EventPunchIn:
			openIn = rec.Timestamp
			open = true
		case store.EventPunchOut:
			if open {
				status.Worked += rec.Timestamp.Sub(openIn)
				open = false
			}
		}
	}
	status.Present = open
}
