package models

import (
	"time"

	"github.com/google/uuid"
)

// Question is one entry in a qa poll's thread. DisplayName is empty for
// anonymous submissions (permitted when the poll allows them).
type Question struct {
	ID            uuid.UUID  `json:"id"`
	PollID        uuid.UUID  `json:"poll_id"`
	SessionID     uuid.UUID  `json:"session_id"`
	ParticipantID *uuid.UUID `json:"participant_id,omitempty"`
	DisplayName   string     `json:"display_name,omitempty"`
	Content       string     `json:"content"`
	Approved      bool       `json:"approved"`
	Answered      bool       `json:"answered"`
	Votes         int        `json:"votes"`
	CreatedAt     time.Time  `json:"created_at"`
}
