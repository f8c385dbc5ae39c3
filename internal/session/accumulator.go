// Package session enforces the per-session active-time budget.
//
// The budget is request driven: time only accrues when a request (or the
// sweeper) reconciles the session, but the idle gap since the previous
// reconciliation is always charged in full.
package session

import (
	"time"

	"github.com/dom/learnplay/internal/domain"
)

// Decision is the result of charging one request against a session.
type Decision int

const (
	// Admitted means the budget still has time left after charging.
	Admitted Decision = iota
	// Exhausted means this charge used up the budget; the session is now terminal.
	Exhausted
	// AlreadyInactive means the session was terminal before the charge.
	AlreadyInactive
)

// Outcome is the charged session and the decision taken for it.
type Outcome struct {
	Session  domain.Session
	Decision Decision
	Elapsed  float64
}

// Accumulate charges the time since the last activity to s as of now.
// It does not mutate s. Clock skew that would make elapsed negative is clamped to zero.
func Accumulate(s domain.Session, now time.Time) Outcome {
	if !s.IsActive {
		return Outcome{Session: s, Decision: AlreadyInactive}
	}

	elapsed := now.Sub(s.LastActivity).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}

	next := s
	next.UsedActiveTime = s.UsedActiveTime + elapsed
	if now.After(s.LastActivity) {
		next.LastActivity = now
	}

	if next.UsedActiveTime/60 >= float64(next.ActiveTimeMinutes) {
		next.IsActive = false
		ended := now
		next.EndedAt = &ended
		return Outcome{Session: next, Decision: Exhausted, Elapsed: elapsed}
	}

	return Outcome{Session: next, Decision: Admitted, Elapsed: elapsed}
}
