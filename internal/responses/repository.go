package responses

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grouppulse/backend/internal/models"
)

// Repository handles poll response persistence. Responses are insert-only;
// the only deletes are bulk resets per poll or per session.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a responses repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a response.
func (r *Repository) Create(ctx context.Context, resp *models.PollResponse) error {
	const q = `INSERT INTO poll_responses (poll_id, session_id, participant_id, display_name, payload, is_correct, points)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q,
		resp.PollID, resp.SessionID, resp.ParticipantID, resp.DisplayName, resp.Payload, resp.IsCorrect, resp.Points).
		Scan(&resp.ID, &resp.CreatedAt)
}

// CountByPollAndParticipant returns how many responses a participant has
// already submitted to a poll (word-cloud entry budgeting).
func (r *Repository) CountByPollAndParticipant(ctx context.Context, pollID, participantID uuid.UUID) (int, error) {
	const q = `SELECT COUNT(*) FROM poll_responses WHERE poll_id = $1 AND participant_id = $2`
	var n int
	err := r.pool.QueryRow(ctx, q, pollID, participantID).Scan(&n)
	return n, err
}

// CountByPoll returns the total number of responses to a poll.
func (r *Repository) CountByPoll(ctx context.Context, pollID uuid.UUID) (int, error) {
	const q = `SELECT COUNT(*) FROM poll_responses WHERE poll_id = $1`
	var n int
	err := r.pool.QueryRow(ctx, q, pollID).Scan(&n)
	return n, err
}

// ListByPoll returns all responses to a poll, oldest first.
func (r *Repository) ListByPoll(ctx context.Context, pollID uuid.UUID) ([]models.PollResponse, error) {
	const q = `SELECT id, poll_id, session_id, participant_id, COALESCE(display_name, ''), payload, is_correct, points, created_at
		FROM poll_responses WHERE poll_id = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, q, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.PollResponse
	for rows.Next() {
		var resp models.PollResponse
		if err := rows.Scan(&resp.ID, &resp.PollID, &resp.SessionID, &resp.ParticipantID, &resp.DisplayName,
			&resp.Payload, &resp.IsCorrect, &resp.Points, &resp.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, resp)
	}
	return list, rows.Err()
}

// DeleteByPoll removes every response to a poll (poll reset).
func (r *Repository) DeleteByPoll(ctx context.Context, pollID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM poll_responses WHERE poll_id = $1`, pollID)
	return tag.RowsAffected(), err
}

// DeleteBySession removes every response in a session (session reset).
func (r *Repository) DeleteBySession(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM poll_responses WHERE session_id = $1`, sessionID)
	return tag.RowsAffected(), err
}
