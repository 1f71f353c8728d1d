package responses

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grouppulse/backend/internal/models"
)

// SnapshotRepository persists frozen per-poll aggregates for ended sessions.
// Rows are written by the snapshot worker and read by presenter dashboards.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository creates a snapshot repository.
func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// Create inserts a snapshot row.
func (r *SnapshotRepository) Create(ctx context.Context, s *models.ResultSnapshot) error {
	const q = `INSERT INTO result_snapshots (session_id, poll_id, poll_type, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, computed_at`
	return r.pool.QueryRow(ctx, q, s.SessionID, s.PollID, string(s.PollType), s.Payload).
		Scan(&s.ID, &s.ComputedAt)
}

// DeleteBySession removes a session's snapshots before recompute.
func (r *SnapshotRepository) DeleteBySession(ctx context.Context, sessionID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM result_snapshots WHERE session_id = $1`, sessionID)
	return err
}

// ListBySession returns a session's stored snapshots.
func (r *SnapshotRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.ResultSnapshot, error) {
	const q = `SELECT id, session_id, poll_id, poll_type, payload, computed_at
		FROM result_snapshots WHERE session_id = $1 ORDER BY computed_at`
	rows, err := r.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.ResultSnapshot
	for rows.Next() {
		var s models.ResultSnapshot
		if err := rows.Scan(&s.ID, &s.SessionID, &s.PollID, &s.PollType, &s.Payload, &s.ComputedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
