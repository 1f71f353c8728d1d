package polls

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grouppulse/backend/internal/models"
)

// Repository handles poll persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a polls repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new poll at the end of the session's ordering.
func (r *Repository) Create(ctx context.Context, p *models.Poll) error {
	const q = `INSERT INTO polls (session_id, type, position, data, launched, closed)
		VALUES ($1, $2, (SELECT COALESCE(MAX(position), 0) + 1 FROM polls WHERE session_id = $1), $3, FALSE, FALSE)
		RETURNING id, position, created_at`
	return r.pool.QueryRow(ctx, q, p.SessionID, string(p.Type), p.Data).
		Scan(&p.ID, &p.Position, &p.CreatedAt)
}

// GetByID returns a poll by ID, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	const q = `SELECT id, session_id, type, position, data, launched, closed, created_at
		FROM polls WHERE id = $1`
	var p models.Poll
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&p.ID, &p.SessionID, &p.Type, &p.Position, &p.Data, &p.Launched, &p.Closed, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// ListBySession returns all polls of a session in presentation order.
func (r *Repository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Poll, error) {
	return r.list(ctx, `SELECT id, session_id, type, position, data, launched, closed, created_at
		FROM polls WHERE session_id = $1 ORDER BY position`, sessionID)
}

// ListLaunchedBySession returns the session's currently launched, not yet
// closed polls (the participant view).
func (r *Repository) ListLaunchedBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Poll, error) {
	return r.list(ctx, `SELECT id, session_id, type, position, data, launched, closed, created_at
		FROM polls WHERE session_id = $1 AND launched AND NOT closed ORDER BY position`, sessionID)
}

func (r *Repository) list(ctx context.Context, q string, sessionID uuid.UUID) ([]models.Poll, error) {
	rows, err := r.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Poll
	for rows.Next() {
		var p models.Poll
		if err := rows.Scan(&p.ID, &p.SessionID, &p.Type, &p.Position, &p.Data, &p.Launched, &p.Closed, &p.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Launch sets poll launched to true.
func (r *Repository) Launch(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE polls SET launched = TRUE WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// Close sets poll closed to true.
func (r *Repository) Close(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE polls SET closed = TRUE WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// Reorder updates a poll's position within its session.
func (r *Repository) Reorder(ctx context.Context, id uuid.UUID, position int) error {
	const q = `UPDATE polls SET position = $1 WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, position, id)
	return err
}

// Delete removes a poll; its responses and questions cascade. The poll type
// is immutable, so a type change is this plus Create.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM polls WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}
