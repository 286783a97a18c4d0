// Package attendance coordinates the punch flow: recognize an enrolled
// identity, enforce the per-identity cooldown, gate the event behind a
// blink liveness check and append the accepted record to the log.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/detect"
	"github.com/kozaktomas/face-attendance/internal/liveness"
	"github.com/kozaktomas/face-attendance/internal/match"
	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/vector"
)

var (
	// ErrCooldownActive rejects a punch attempt inside the cooldown
	// window. Use errors.As with *CooldownError for the remaining time.
	ErrCooldownActive = errors.New("cooldown active")

	// ErrLivenessTimeout indicates the liveness session failed on its
	// own clock before a blink was seen.
	ErrLivenessTimeout = errors.New("liveness check timed out")

	// ErrLivenessFailed indicates the caller ran out of frames while
	// the liveness session was still pending.
	ErrLivenessFailed = errors.New("liveness check failed")

	// ErrSessionNotFound indicates an unknown or already resolved punch
	// session handle.
	ErrSessionNotFound = errors.New("punch session not found")

	// ErrNoMatch indicates the query face matched no enrolled identity.
	ErrNoMatch = errors.New("face not recognized")
)

// CooldownError carries how long the identity must wait before the next
// punch is accepted.
type CooldownError struct {
	IdentityID int64
	Remaining  time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active for identity %d, %s remaining", e.IdentityID, e.Remaining.Round(time.Millisecond))
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldownActive
}

// DefaultCooldown is the minimum gap between accepted punches for the
// same identity.
const DefaultCooldown = 10 * time.Second

// Params tune the controller.
type Params struct {
	// Cooldown is the per-identity window during which repeated punch
	// attempts are rejected.
	Cooldown time.Duration
	// Liveness parameters are handed to every punch session.
	Liveness liveness.Params
}

func (p Params) withDefaults() Params {
	if p.Cooldown <= 0 {
		p.Cooldown = DefaultCooldown
	}
	return p
}

// PunchResult is the outcome of polling a punch session with one frame.
// Done is true once the session resolved; Record is set only on an
// accepted punch.
type PunchResult struct {
	Done     bool
	Liveness liveness.Result
	Record   *store.AttendanceRecord
}

type punchSession struct {
	identity  store.Identity
	event     store.EventType
	live      *liveness.Session
	createdAt time.Time
}

// Controller runs the attendance flow on top of a store, a match engine
// and the cooldown ledger. Safe for concurrent use.
type Controller struct {
	store  store.Store
	engine *match.Engine
	ledger *CooldownLedger
	params Params

	mu       sync.Mutex
	sessions map[uuid.UUID]*punchSession
}

// NewController creates a controller and seeds the cooldown ledger from
// the persisted attendance log, so restarting the process does not open
// a cooldown bypass.
func NewController(ctx context.Context, st store.Store, engine *match.Engine, params Params) (*Controller, error) {
	records, err := st.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not load attendance records: %w", err)
	}
	return &Controller{
		store:    st,
		engine:   engine,
		ledger:   NewCooldownLedgerFromRecords(records),
		params:   params.withDefaults(),
		sessions: make(map[uuid.UUID]*punchSession),
	}, nil
}

// Recognize matches a query vector against all enrolled identities.
func (c *Controller) Recognize(ctx context.Context, query vector.FaceVector) (match.Result, error) {
	identities, err := c.store.ListIdentities(ctx)
	if err != nil {
		return match.Result{}, fmt.Errorf("could not list identities: %w", err)
	}
	return c.engine.Match(query, identities)
}

// BeginPunch starts a punch attempt for a recognized identity. It
// rejects attempts inside the cooldown window and otherwise opens a
// liveness session whose handle the caller polls frame by frame.
func (c *Controller) BeginPunch(ctx context.Context, identityID int64, event store.EventType, now time.Time) (uuid.UUID, error) {
	if !event.Valid() {
		return uuid.Nil, fmt.Errorf("invalid event type %q", event)
	}

	ident, err := c.store.GetIdentity(ctx, identityID)
	if err != nil {
		return uuid.Nil, err
	}

	if remaining := c.ledger.Remaining(identityID, now, c.params.Cooldown); remaining > 0 {
		return uuid.Nil, &CooldownError{IdentityID: identityID, Remaining: remaining}
	}

	sess := &punchSession{
		identity:  *ident,
		event:     event,
		live:      liveness.NewSession(c.params.Liveness),
		createdAt: now,
	}

	c.mu.Lock()
	c.pruneLocked(now)
	c.sessions[sess.live.ID()] = sess
	c.mu.Unlock()

	return sess.live.ID(), nil
}

// Poll advances a punch session with one frame's eye observation. It
// returns a pending result until the session resolves. On verification
// the punch is recorded and the cooldown ledger updated atomically with
// respect to other punches for the same identity.
func (c *Controller) Poll(ctx context.Context, sessionID uuid.UUID, now time.Time, eyes []detect.Region) (PunchResult, error) {
	c.mu.Lock()
	sess, ok := c.sessions[sessionID]
	c.mu.Unlock()
	if !ok {
		return PunchResult{}, ErrSessionNotFound
	}

	res := sess.live.Observe(now, eyes)
	switch res.Status {
	case liveness.StatusPending:
		return PunchResult{Liveness: res}, nil

	case liveness.StatusFailed:
		c.drop(sessionID)
		return PunchResult{Done: true, Liveness: res}, ErrLivenessTimeout

	case liveness.StatusVerified:
		c.drop(sessionID)
		rec := store.AttendanceRecord{
			IdentityID: sess.identity.ID,
			Name:       sess.identity.Name,
			Event:      sess.event,
			Timestamp:  now,
		}
		if err := c.store.AppendRecord(ctx, rec); err != nil {
			return PunchResult{Done: true, Liveness: res}, fmt.Errorf("could not record punch: %w", err)
		}
		c.ledger.Touch(sess.identity.ID, now)
		return PunchResult{Done: true, Liveness: res, Record: &rec}, nil
	}

	return PunchResult{}, fmt.Errorf("unexpected liveness status %d", res.Status)
}

// Abandon discards a punch session, typically because the caller ran
// out of frames while the session was still pending.
func (c *Controller) Abandon(sessionID uuid.UUID) {
	c.drop(sessionID)
}

func (c *Controller) drop(sessionID uuid.UUID) {
	c.mu.Lock()
	delete(c.sessions, sessionID)
	c.mu.Unlock()
}

// pruneLocked drops sessions abandoned without a Poll reaching their
// timeout. Callers hold c.mu.
func (c *Controller) pruneLocked(now time.Time) {
	horizon := c.params.Liveness.Timeout
	if horizon <= 0 {
		horizon = liveness.DefaultTimeout
	}
	horizon += time.Minute
	for id, sess := range c.sessions {
		if now.Sub(sess.createdAt) > horizon {
			delete(c.sessions, id)
		}
	}
}
