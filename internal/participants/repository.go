package participants

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grouppulse/backend/internal/models"
)

// Repository records the attendee log: one row per join or leave event.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a participants repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LogJoin records a join event.
func (r *Repository) LogJoin(ctx context.Context, sessionID uuid.UUID, participantID *uuid.UUID) error {
	return r.log(ctx, sessionID, participantID, models.ParticipantJoined)
}

// LogLeave records a leave event.
func (r *Repository) LogLeave(ctx context.Context, sessionID uuid.UUID, participantID *uuid.UUID) error {
	return r.log(ctx, sessionID, participantID, models.ParticipantLeft)
}

func (r *Repository) log(ctx context.Context, sessionID uuid.UUID, participantID *uuid.UUID, event string) error {
	const q = `INSERT INTO participant_logs (session_id, participant_id, event) VALUES ($1, $2, $3)`
	_, err := r.pool.Exec(ctx, q, sessionID, participantID, event)
	return err
}

// ListBySession returns a session's attendee log, oldest first.
func (r *Repository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.ParticipantLog, error) {
	const q = `SELECT id, session_id, participant_id, event, created_at
		FROM participant_logs WHERE session_id = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.ParticipantLog
	for rows.Next() {
		var l models.ParticipantLog
		if err := rows.Scan(&l.ID, &l.SessionID, &l.ParticipantID, &l.Event, &l.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

// DistinctParticipantCount counts distinct identified participants that ever
// joined the session. Anonymous connections are not counted here.
func (r *Repository) DistinctParticipantCount(ctx context.Context, sessionID uuid.UUID) (int, error) {
	const q = `SELECT COUNT(DISTINCT participant_id) FROM participant_logs
		WHERE session_id = $1 AND participant_id IS NOT NULL AND event = $2`
	var n int
	err := r.pool.QueryRow(ctx, q, sessionID, models.ParticipantJoined).Scan(&n)
	return n, err
}
