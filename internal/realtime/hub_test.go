package realtime

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// fakePubSub records published events and exposes the subscription handler so
// tests can play messages back as if they arrived from Redis.
type fakePubSub struct {
	mu        sync.Mutex
	published []fakeEvent
	handler   func(origin, event string, payload []byte)
}

type fakeEvent struct {
	origin  string
	event   string
	payload []byte
}

func (f *fakePubSub) PublishSessionEvent(sessionID uuid.UUID, origin, event string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, fakeEvent{origin: origin, event: event, payload: payload})
	return nil
}

func (f *fakePubSub) SubscribeSession(sessionID uuid.UUID, handler func(origin, event string, payload []byte)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
	return func() {}, nil
}

func (f *fakePubSub) lastPublished(t *testing.T) fakeEvent {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.published) == 0 {
		t.Fatal("nothing published")
	}
	return f.published[len(f.published)-1]
}

func newTestClient(sessionID uuid.UUID) *Client {
	return &Client{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      "participant",
		JoinedAt:  time.Now(),
		send:      make(chan WSMessage, 16),
	}
}

func drain(c *Client) []WSMessage {
	var out []WSMessage
	for {
		select {
		case msg := <-c.send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestBroadcastAndPublishDeliversOncePerInstance(t *testing.T) {
	ps := &fakePubSub{}
	hub := NewHub(zap.NewNop(), ps, ps)
	sessionID := uuid.New()

	client := newTestClient(sessionID)
	hub.Register(client)
	defer hub.Unregister(client)
	if ps.handler == nil {
		t.Fatal("first client did not start a session subscription")
	}

	hub.BroadcastToSessionAndPublish(sessionID, "poll_launched", map[string]string{"poll_id": "p1"})

	ev := ps.lastPublished(t)
	if ev.event != "poll_launched" {
		t.Fatalf("published event = %q, want poll_launched", ev.event)
	}
	if ev.origin != hub.id {
		t.Fatalf("published origin = %q, want hub id %q", ev.origin, hub.id)
	}

	// Redis echoes the channel message back to every subscriber, this
	// instance included. Self-originated messages must be dropped.
	ps.handler(ev.origin, ev.event, ev.payload)

	got := drain(client)
	if len(got) != 1 {
		t.Fatalf("client received %d messages, want exactly 1", len(got))
	}
	if got[0].Event != "poll_launched" {
		t.Fatalf("delivered event = %q, want poll_launched", got[0].Event)
	}
}

func TestSubscriptionDeliversForeignOriginEvents(t *testing.T) {
	ps := &fakePubSub{}
	hub := NewHub(zap.NewNop(), ps, ps)
	sessionID := uuid.New()

	client := newTestClient(sessionID)
	hub.Register(client)
	defer hub.Unregister(client)

	payload, _ := json.Marshal(map[string]string{"poll_id": "p2"})
	ps.handler("other-instance", "poll_closed", payload)

	got := drain(client)
	if len(got) != 1 {
		t.Fatalf("client received %d messages, want 1", len(got))
	}
	if got[0].Event != "poll_closed" {
		t.Fatalf("delivered event = %q, want poll_closed", got[0].Event)
	}
}

// Exercises broadcast concurrently with membership churn in the same room;
// run with -race to verify the room snapshot is taken under the lock.
func TestBroadcastDuringMembershipChurn(t *testing.T) {
	ps := &fakePubSub{}
	hub := NewHub(zap.NewNop(), ps, ps)
	sessionID := uuid.New()

	anchor := newTestClient(sessionID)
	hub.Register(anchor)
	defer hub.Unregister(anchor)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			c := newTestClient(sessionID)
			hub.Register(c)
			hub.Unregister(c)
		}
	}()

	for i := 0; i < 200; i++ {
		hub.BroadcastToSession(sessionID, "participant_count", map[string]int{"count": i})
	}
	close(done)
	wg.Wait()

	if len(drain(anchor)) == 0 {
		t.Fatal("anchored client received no broadcasts")
	}
}
