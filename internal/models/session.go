package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a session. Only draft and active
// sessions are visible to participants resolving a join code.
type SessionStatus string

const (
	SessionDraft  SessionStatus = "draft"
	SessionActive SessionStatus = "active"
	SessionEnded  SessionStatus = "ended"
)

// Valid reports whether s is a known lifecycle state.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionDraft, SessionActive, SessionEnded:
		return true
	}
	return false
}

// CanTransitionTo reports whether the status change is a legal lifecycle
// step: draft -> active -> ended, no reopening.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case SessionDraft:
		return next == SessionActive
	case SessionActive:
		return next == SessionEnded
	}
	return false
}

// Session is a live engagement event owned by one presenter. Code is minted
// once at creation and immutable thereafter.
type Session struct {
	ID               uuid.UUID     `json:"id"`
	Code             string        `json:"code"`
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	Status           SessionStatus `json:"status"`
	CreatedBy        uuid.UUID     `json:"created_by"`
	PeakParticipants int           `json:"peak_participants"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// JoinableByParticipants reports whether the session is resolvable via its
// join code.
func (s *Session) JoinableByParticipants() bool {
	return s.Status == SessionDraft || s.Status == SessionActive
}

// ErrInvalidTransition is returned for illegal session status changes.
type ErrInvalidTransition struct {
	From SessionStatus
	To   SessionStatus
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("cannot transition session from %s to %s", e.From, e.To)
}
