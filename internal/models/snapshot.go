package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ResultSnapshot is a per-poll aggregate computed by the background worker
// when a session ends. Payload shape depends on the poll variant (option
// counts, word frequencies, numeric summaries).
type ResultSnapshot struct {
	ID         uuid.UUID       `json:"id"`
	SessionID  uuid.UUID       `json:"session_id"`
	PollID     uuid.UUID       `json:"poll_id"`
	PollType   PollType        `json:"poll_type"`
	Payload    json.RawMessage `json:"payload"`
	ComputedAt time.Time       `json:"computed_at"`
}
