package questions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grouppulse/backend/internal/models"
)

// ErrAlreadyVoted is returned when a participant upvotes a question twice.
var ErrAlreadyVoted = errors.New("participant already voted on this question")

const pgUniqueViolation = "23505"

// Repository handles question persistence for qa polls.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a questions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a question. Moderated polls start questions unapproved; the
// caller decides the initial approved flag.
func (r *Repository) Create(ctx context.Context, q *models.Question) error {
	const sql = `INSERT INTO questions (poll_id, session_id, participant_id, display_name, content, approved)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, sql,
		q.PollID, q.SessionID, q.ParticipantID, q.DisplayName, q.Content, q.Approved).
		Scan(&q.ID, &q.CreatedAt)
}

// GetByID returns a question by ID, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	const sql = `SELECT id, poll_id, session_id, participant_id, COALESCE(display_name, ''), content, approved, answered, votes, created_at
		FROM questions WHERE id = $1`
	var q models.Question
	err := r.pool.QueryRow(ctx, sql, id).
		Scan(&q.ID, &q.PollID, &q.SessionID, &q.ParticipantID, &q.DisplayName, &q.Content, &q.Approved, &q.Answered, &q.Votes, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &q, nil
}

// ListByPoll returns a poll's questions, most upvoted first. When
// approvedOnly is set, unapproved questions are filtered out (the
// participant view).
func (r *Repository) ListByPoll(ctx context.Context, pollID uuid.UUID, approvedOnly bool) ([]models.Question, error) {
	sql := `SELECT id, poll_id, session_id, participant_id, COALESCE(display_name, ''), content, approved, answered, votes, created_at
		FROM questions WHERE poll_id = $1`
	if approvedOnly {
		sql += ` AND approved`
	}
	sql += ` ORDER BY votes DESC, created_at`

	rows, err := r.pool.Query(ctx, sql, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.PollID, &q.SessionID, &q.ParticipantID, &q.DisplayName, &q.Content, &q.Approved, &q.Answered, &q.Votes, &q.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, q)
	}
	return list, rows.Err()
}

// Upvote records one vote per participant per question and bumps the counter.
func (r *Repository) Upvote(ctx context.Context, questionID, participantID uuid.UUID) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	const insert = `INSERT INTO question_votes (question_id, participant_id) VALUES ($1, $2)`
	if _, err := tx.Exec(ctx, insert, questionID, participantID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return 0, ErrAlreadyVoted
		}
		return 0, err
	}

	const bump = `UPDATE questions SET votes = votes + 1 WHERE id = $1 RETURNING votes`
	var votes int
	if err := tx.QueryRow(ctx, bump, questionID).Scan(&votes); err != nil {
		return 0, err
	}
	return votes, tx.Commit(ctx)
}

// SetApproved flips a question's moderation state.
func (r *Repository) SetApproved(ctx context.Context, id uuid.UUID, approved bool) error {
	_, err := r.pool.Exec(ctx, `UPDATE questions SET approved = $1 WHERE id = $2`, approved, id)
	return err
}

// MarkAnswered marks a question answered.
func (r *Repository) MarkAnswered(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE questions SET answered = TRUE WHERE id = $1`, id)
	return err
}

// Delete removes a question and its votes (cascade).
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	return err
}
