package sessions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grouppulse/backend/internal/models"
)

// ErrCodeConflict is returned when an insert loses the race for a join code.
// The sessions.code unique constraint is the authoritative uniqueness guard;
// callers treat this as a retryable conflict.
var ErrCodeConflict = errors.New("session code already taken")

// pgUniqueViolation is the PostgreSQL error code for unique constraint
// violations.
const pgUniqueViolation = "23505"

// Repository handles session persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a sessions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CodeExists reports whether any session currently holds the given join
// code. It is the existence-check capability behind sessioncode.ResolveUnique.
func (r *Repository) CodeExists(ctx context.Context, code string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM sessions WHERE code = $1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, q, code).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Create inserts a new session with its minted join code. A write-time code
// collision surfaces as ErrCodeConflict.
func (r *Repository) Create(ctx context.Context, s *models.Session) error {
	const q = `INSERT INTO sessions (code, title, description, status, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, s.Code, s.Title, s.Description, string(s.Status), s.CreatedBy).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrCodeConflict
		}
		return err
	}
	return nil
}

// GetByID returns a session by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	const q = `SELECT id, code, title, description, status, created_by, peak_participants, created_at, updated_at
		FROM sessions WHERE id = $1`
	var s models.Session
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&s.ID, &s.Code, &s.Title, &s.Description, &s.Status, &s.CreatedBy, &s.PeakParticipants, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByCode resolves a join code to its session, or nil when no session
// holds the code.
func (r *Repository) GetByCode(ctx context.Context, code string) (*models.Session, error) {
	const q = `SELECT id, code, title, description, status, created_by, peak_participants, created_at, updated_at
		FROM sessions WHERE code = $1`
	var s models.Session
	err := r.pool.QueryRow(ctx, q, code).
		Scan(&s.ID, &s.Code, &s.Title, &s.Description, &s.Status, &s.CreatedBy, &s.PeakParticipants, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ListByOwner returns all sessions created by a presenter, newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Session, error) {
	const q = `SELECT id, code, title, description, status, created_by, peak_participants, created_at, updated_at
		FROM sessions WHERE created_by = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Session
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.ID, &s.Code, &s.Title, &s.Description, &s.Status, &s.CreatedBy, &s.PeakParticipants, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// Update updates the session's title and description.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, title, description string) error {
	const q = `UPDATE sessions SET title = $1, description = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.pool.Exec(ctx, q, title, description, id)
	return err
}

// UpdateStatus sets the session lifecycle status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.SessionStatus) error {
	const q = `UPDATE sessions SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, string(status), id)
	return err
}

// UpdatePeakParticipants raises the stored peak when count exceeds it.
func (r *Repository) UpdatePeakParticipants(ctx context.Context, id uuid.UUID, count int) error {
	const q = `UPDATE sessions SET peak_participants = $1, updated_at = NOW() WHERE id = $2 AND $1 > peak_participants`
	_, err := r.pool.Exec(ctx, q, count, id)
	return err
}

// Delete removes a session; polls, responses and questions cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM sessions WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// IsOwner reports whether the user created the session.
func (r *Repository) IsOwner(ctx context.Context, sessionID, userID uuid.UUID) (bool, error) {
	s, err := r.GetByID(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return s.CreatedBy == userID, nil
}
