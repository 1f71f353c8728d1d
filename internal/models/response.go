package models

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrCrossSessionReference is returned when a response names a poll that does
// not belong to the stated session. Such a response is rejected outright,
// never partially persisted.
var ErrCrossSessionReference = errors.New("poll does not belong to session")

// ShapeError reports that a response payload does not match its poll
// variant's expected shape. Constraint names the rule that failed so the
// caller can surface a field-level reason.
type ShapeError struct {
	Constraint string
	Reason     string
}

func (e *ShapeError) Error() string {
	return "invalid response shape (" + e.Constraint + "): " + e.Reason
}

// NewShapeError builds a ShapeError for a named constraint.
func NewShapeError(constraint, reason string) *ShapeError {
	return &ShapeError{Constraint: constraint, Reason: reason}
}

// IsShapeError reports whether err is (or wraps) a ShapeError.
func IsShapeError(err error) bool {
	var se *ShapeError
	return errors.As(err, &se)
}

// PollResponse records one participant submission. Payload shape depends on
// the owning poll's variant: an option id for single-select, an array of
// option ids for multi-select and ranking, a string for word-cloud and
// open-ended, a number for scale and slider. Responses are never mutated;
// they are deleted only by bulk reset per session or per poll.
type PollResponse struct {
	ID            uuid.UUID       `json:"id"`
	PollID        uuid.UUID       `json:"poll_id"`
	SessionID     uuid.UUID       `json:"session_id"`
	ParticipantID *uuid.UUID      `json:"participant_id,omitempty"`
	DisplayName   string          `json:"display_name,omitempty"`
	Payload       json.RawMessage `json:"payload"`
	IsCorrect     *bool           `json:"is_correct,omitempty"`
	Points        *int            `json:"points,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
