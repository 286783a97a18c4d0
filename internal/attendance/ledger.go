package attendance

import (
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/store"
)

// CooldownLedger tracks the timestamp of the last accepted punch per
// identity. It is populated from persisted records at startup, updated
// on every accepted event and never cleared for the process lifetime.
// Writers are serialized so concurrent web callers cannot race the
// punch path.
type CooldownLedger struct {
	mu   sync.Mutex
	last map[int64]time.Time
}

// NewCooldownLedger creates an empty ledger.
func NewCooldownLedger() *CooldownLedger {
	return &CooldownLedger{last: make(map[int64]time.Time)}
}

// NewCooldownLedgerFromRecords seeds a ledger with the latest accepted
// event per identity from the persisted attendance log.
func NewCooldownLedgerFromRecords(records []store.AttendanceRecord) *CooldownLedger {
	l := NewCooldownLedger()
	for _, rec := range records {
		if rec.Timestamp.After(l.last[rec.IdentityID]) {
			l.last[rec.IdentityID] = rec.Timestamp
		}
	}
	return l
}

// Remaining returns how much of the cooldown window is left for the
// identity at the given time. Zero means no cooldown is active.
func (l *CooldownLedger) Remaining(identityID int64, now time.Time, window time.Duration) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	last, ok := l.last[identityID]
	if !ok {
		return 0
	}
	elapsed := now.Sub(last)
	if elapsed >= window {
		return 0
	}
	return window - elapsed
}

// Touch records an accepted event for the identity.
func (l *CooldownLedger) Touch(identityID int64, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last[identityID] = now
}
