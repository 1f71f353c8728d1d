package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/grouppulse/backend/internal/models"
	"github.com/grouppulse/backend/pkg/queue"
)

type fakeSessionStore struct {
	session *models.Session
	err     error
}

func (f *fakeSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	return f.session, f.err
}

type fakePollStore struct {
	polls []models.Poll
}

func (f *fakePollStore) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Poll, error) {
	return f.polls, nil
}

type fakeResponseStore struct {
	byPoll map[uuid.UUID][]models.PollResponse
}

func (f *fakeResponseStore) ListByPoll(ctx context.Context, pollID uuid.UUID) ([]models.PollResponse, error) {
	return f.byPoll[pollID], nil
}

type fakeSnapshotStore struct {
	created []models.ResultSnapshot
	deleted []uuid.UUID
}

func (f *fakeSnapshotStore) Create(ctx context.Context, s *models.ResultSnapshot) error {
	f.created = append(f.created, *s)
	return nil
}

func (f *fakeSnapshotStore) DeleteBySession(ctx context.Context, sessionID uuid.UUID) error {
	f.deleted = append(f.deleted, sessionID)
	return nil
}

func snapshotJob(t *testing.T, sessionID uuid.UUID) *queue.Job {
	t.Helper()
	payload, err := json.Marshal(queue.SnapshotPayload{SessionID: sessionID})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &queue.Job{ID: uuid.NewString(), Type: queue.JobTypeSnapshot, Payload: payload}
}

func encodePollData(t *testing.T, typ models.PollType, data interface{}) json.RawMessage {
	t.Helper()
	raw, err := models.EncodeData(typ, data)
	if err != nil {
		t.Fatalf("encode poll data: %v", err)
	}
	return raw
}

func newProcessor(sessions *fakeSessionStore, polls *fakePollStore, resps *fakeResponseStore, snaps *fakeSnapshotStore) *SnapshotProcessor {
	return NewSnapshotProcessor(nil, snaps, sessions, polls, resps, zap.NewNop())
}

func TestProcessDropsJobForDeletedSession(t *testing.T) {
	snaps := &fakeSnapshotStore{}
	p := newProcessor(
		&fakeSessionStore{err: pgx.ErrNoRows},
		&fakePollStore{},
		&fakeResponseStore{},
		snaps,
	)

	// A session deleted after enqueue must not be retried into the DLQ.
	if err := p.Process(context.Background(), snapshotJob(t, uuid.New())); err != nil {
		t.Fatalf("Process = %v, want nil for a deleted session", err)
	}
	if len(snaps.deleted) != 0 || len(snaps.created) != 0 {
		t.Fatalf("snapshot store touched for a missing session: %+v", snaps)
	}
}

func TestProcessSkipsSessionThatHasNotEnded(t *testing.T) {
	sessionID := uuid.New()
	snaps := &fakeSnapshotStore{}
	p := newProcessor(
		&fakeSessionStore{session: &models.Session{ID: sessionID, Status: models.SessionActive}},
		&fakePollStore{},
		&fakeResponseStore{},
		snaps,
	)

	if err := p.Process(context.Background(), snapshotJob(t, sessionID)); err != nil {
		t.Fatalf("Process = %v, want nil for a session still running", err)
	}
	if len(snaps.deleted) != 0 {
		t.Fatal("existing snapshots cleared for a session still running")
	}
}

func TestProcessSnapshotsEndedSessionExcludingQA(t *testing.T) {
	sessionID := uuid.New()
	choicePoll := models.Poll{
		ID:        uuid.New(),
		SessionID: sessionID,
		Type:      models.PollMultipleChoice,
		Data: encodePollData(t, models.PollMultipleChoice, &models.MultipleChoiceData{
			Question: "Favorite?",
			Options:  []models.Option{{ID: "a", Text: "A"}, {ID: "b", Text: "B"}},
		}),
	}
	qaPoll := models.Poll{
		ID:        uuid.New(),
		SessionID: sessionID,
		Type:      models.PollQA,
		Data:      encodePollData(t, models.PollQA, &models.QAData{Title: "Ask away"}),
	}

	snaps := &fakeSnapshotStore{}
	p := newProcessor(
		&fakeSessionStore{session: &models.Session{ID: sessionID, Status: models.SessionEnded}},
		&fakePollStore{polls: []models.Poll{choicePoll, qaPoll}},
		&fakeResponseStore{byPoll: map[uuid.UUID][]models.PollResponse{
			choicePoll.ID: {
				{Payload: json.RawMessage(`"a"`)},
				{Payload: json.RawMessage(`"a"`)},
				{Payload: json.RawMessage(`"b"`)},
			},
		}},
		snaps,
	)

	if err := p.Process(context.Background(), snapshotJob(t, sessionID)); err != nil {
		t.Fatalf("Process = %v", err)
	}

	if len(snaps.deleted) != 1 || snaps.deleted[0] != sessionID {
		t.Fatalf("deleted = %v, want one delete for %s", snaps.deleted, sessionID)
	}
	if len(snaps.created) != 1 {
		t.Fatalf("created %d snapshots, want 1 (qa polls have no aggregate)", len(snaps.created))
	}
	snap := snaps.created[0]
	if snap.PollID != choicePoll.ID || snap.PollType != models.PollMultipleChoice {
		t.Fatalf("snapshot = %+v, want choice poll", snap)
	}
	var agg map[string]interface{}
	if err := json.Unmarshal(snap.Payload, &agg); err != nil {
		t.Fatalf("unmarshal snapshot payload: %v", err)
	}
	if agg["total"].(float64) != 3 {
		t.Errorf("total = %v, want 3", agg["total"])
	}
}

func TestProcessRejectsUnknownJobType(t *testing.T) {
	p := newProcessor(&fakeSessionStore{}, &fakePollStore{}, &fakeResponseStore{}, &fakeSnapshotStore{})
	job := &queue.Job{ID: uuid.NewString(), Type: "recording"}
	if err := p.Process(context.Background(), job); err == nil {
		t.Fatal("expected error for unknown job type")
	}
}
