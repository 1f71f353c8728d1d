package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/grouppulse/backend/internal/models"
	"github.com/grouppulse/backend/internal/responses"
	"github.com/grouppulse/backend/pkg/queue"
)

// SessionStore loads sessions for snapshotting.
type SessionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
}

// PollStore lists a session's polls.
type PollStore interface {
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Poll, error)
}

// ResponseStore lists a poll's responses.
type ResponseStore interface {
	ListByPoll(ctx context.Context, pollID uuid.UUID) ([]models.PollResponse, error)
}

// SnapshotStore persists computed result snapshots.
type SnapshotStore interface {
	Create(ctx context.Context, s *models.ResultSnapshot) error
	DeleteBySession(ctx context.Context, sessionID uuid.UUID) error
}

// SnapshotProcessor consumes snapshot jobs and freezes an ended session's
// poll results into result_snapshots rows.
type SnapshotProcessor struct {
	queue        *queue.Queue
	snapshots    SnapshotStore
	sessionRepo  SessionStore
	pollRepo     PollStore
	responseRepo ResponseStore
	logger       *zap.Logger
}

// NewSnapshotProcessor creates a snapshot processor.
func NewSnapshotProcessor(q *queue.Queue, snapshots SnapshotStore, sessionRepo SessionStore,
	pollRepo PollStore, responseRepo ResponseStore, logger *zap.Logger) *SnapshotProcessor {
	return &SnapshotProcessor{
		queue:        q,
		snapshots:    snapshots,
		sessionRepo:  sessionRepo,
		pollRepo:     pollRepo,
		responseRepo: responseRepo,
		logger:       logger,
	}
}

// Run blocks on the queue until ctx is cancelled. Failed jobs are retried
// with backoff and end up in the DLQ after queue.MaxRetries attempts.
func (p *SnapshotProcessor) Run(ctx context.Context) {
	p.logger.Info("snapshot worker started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("snapshot worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("dequeue failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			if err := p.queue.Retry(ctx, job); err != nil {
				p.logger.Error("retry failed", zap.String("job_id", job.ID), zap.Error(err))
			}
		}
	}
}

// Process handles a single job.
func (p *SnapshotProcessor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeSnapshot:
		var payload queue.SnapshotPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		return p.snapshotSession(ctx, payload)
	default:
		return fmt.Errorf("unknown job type %q", job.Type)
	}
}

// snapshotSession recomputes and stores one aggregate per non-qa poll of an
// ended session. Re-running the job replaces earlier snapshots, so retries
// and duplicate enqueues are harmless.
func (p *SnapshotProcessor) snapshotSession(ctx context.Context, payload queue.SnapshotPayload) error {
	s, err := p.sessionRepo.GetByID(ctx, payload.SessionID)
	if err != nil {
		// A session deleted between enqueue and dequeue is not a retryable
		// failure; drop the job instead of churning it into the DLQ.
		if errors.Is(err, pgx.ErrNoRows) {
			p.logger.Warn("snapshot job for missing session", zap.String("session_id", payload.SessionID.String()))
			return nil
		}
		return fmt.Errorf("load session: %w", err)
	}
	if s.Status != models.SessionEnded {
		p.logger.Warn("snapshot job for session that has not ended",
			zap.String("session_id", s.ID.String()), zap.String("status", string(s.Status)))
		return nil
	}

	pollList, err := p.pollRepo.ListBySession(ctx, s.ID)
	if err != nil {
		return fmt.Errorf("list polls: %w", err)
	}
	if err := p.snapshots.DeleteBySession(ctx, s.ID); err != nil {
		return fmt.Errorf("clear old snapshots: %w", err)
	}

	computed := 0
	for i := range pollList {
		poll := &pollList[i]
		if poll.Type == models.PollQA {
			continue
		}
		list, err := p.responseRepo.ListByPoll(ctx, poll.ID)
		if err != nil {
			return fmt.Errorf("list responses for poll %s: %w", poll.ID, err)
		}
		agg, err := responses.BuildAggregate(poll, list)
		if err != nil {
			p.logger.Warn("skipping unaggregatable poll", zap.String("poll_id", poll.ID.String()), zap.Error(err))
			continue
		}
		raw, err := json.Marshal(agg)
		if err != nil {
			return fmt.Errorf("marshal aggregate: %w", err)
		}
		snap := &models.ResultSnapshot{
			SessionID: s.ID,
			PollID:    poll.ID,
			PollType:  poll.Type,
			Payload:   raw,
		}
		if err := p.snapshots.Create(ctx, snap); err != nil {
			return fmt.Errorf("store snapshot for poll %s: %w", poll.ID, err)
		}
		computed++
	}

	p.logger.Info("session snapshot complete",
		zap.String("session_id", s.ID.String()),
		zap.Int("polls", computed))
	return nil
}
