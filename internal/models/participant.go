package models

import (
	"time"

	"github.com/google/uuid"
)

// ParticipantLog is one join/leave event in a session's attendee log.
// ParticipantID is nil for fully anonymous connections.
type ParticipantLog struct {
	ID            uuid.UUID  `json:"id"`
	SessionID     uuid.UUID  `json:"session_id"`
	ParticipantID *uuid.UUID `json:"participant_id,omitempty"`
	Event         string     `json:"event"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Participant log events.
const (
	ParticipantJoined = "joined"
	ParticipantLeft   = "left"
)
