package ws

import (
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/fitgrid/messaging-service/internal/domain"
)

func newTestRegistry() *Registry {
	return NewRegistry(zap.NewNop())
}

func queuedEvent(t *testing.T, s *Session) Event {
	t.Helper()
	select {
	case payload := <-s.sendQueue:
		var ev Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			t.Fatalf("queued payload is not an event: %v", err)
		}
		return ev
	default:
		t.Fatal("expected a queued event")
		return Event{}
	}
}

func drainQueue(s *Session) {
	for {
		select {
		case <-s.sendQueue:
		default:
			return
		}
	}
}

func TestRegistry_SessionReplacement(t *testing.T) {
	r := newTestRegistry()

	s1, _ := newTestSession("s1", 1)
	r.Connect(s1)

	if !r.IsUserOnline(1) {
		t.Fatal("user 1 should be online after Connect")
	}

	// A second connection for the same user evicts the first.
	s2, _ := newTestSession("s2", 1)
	r.Connect(s2)

	select {
	case <-s1.Done():
	default:
		t.Error("old session should have been closed on replacement")
	}
	if r.ConnectionCount() != 1 {
		t.Errorf("expected 1 connection, got %d", r.ConnectionCount())
	}

	// The old session's read loop exits late; its Disconnect must not
	// remove the replacement.
	r.Disconnect(s1)
	if !r.IsUserOnline(1) {
		t.Error("late disconnect of the replaced session evicted the new one")
	}

	r.Disconnect(s2)
	if r.IsUserOnline(1) || r.ConnectionCount() != 0 {
		t.Error("registry should be empty after disconnecting the live session")
	}
}

func TestRegistry_SendToUser(t *testing.T) {
	r := newTestRegistry()
	s, _ := newTestSession("s1", 2)
	r.Connect(s)
	drainQueue(s)

	msg := &domain.Message{ID: "m1", ConversationID: "c1", SenderID: 1, Content: "hi", SentAt: time.Now()}
	r.SendToUser(2, NewMessageEvent(msg))

	ev := queuedEvent(t, s)
	if ev.Type != EventNewMessage {
		t.Errorf("expected %s, got %s", EventNewMessage, ev.Type)
	}

	// Sending to a user with no live channel is a silent no-op.
	r.SendToUser(99, NewMessageEvent(msg))
}

func TestRegistry_SendFailureDropsSession(t *testing.T) {
	r := newTestRegistry()
	s, _ := newTestSession("s1", 2)
	r.Connect(s)
	s.Close()

	r.SendToUser(2, ErrorEvent("X", "y"))

	if r.IsUserOnline(2) {
		t.Error("undeliverable session should have been dropped")
	}
}

func TestRegistry_PresenceBroadcast(t *testing.T) {
	r := newTestRegistry()

	s1, _ := newTestSession("s1", 1)
	r.Connect(s1)
	drainQueue(s1)

	s2, _ := newTestSession("s2", 2)
	r.Connect(s2)

	// User 1 learns user 2 came online; user 2 gets nothing about itself.
	ev := queuedEvent(t, s1)
	if ev.Type != EventUserOnline {
		t.Errorf("expected %s, got %s", EventUserOnline, ev.Type)
	}
	if len(s2.sendQueue) != 0 {
		t.Error("connecting user should not receive its own presence event")
	}

	r.Disconnect(s2)
	ev = queuedEvent(t, s1)
	if ev.Type != EventUserOffline {
		t.Errorf("expected %s, got %s", EventUserOffline, ev.Type)
	}
}

func TestRegistry_BroadcastFailureIsolation(t *testing.T) {
	r := newTestRegistry()

	healthy, _ := newTestSession("s1", 1)
	broken, _ := newTestSession("s2", 2)
	r.Connect(healthy)
	r.Connect(broken)
	drainQueue(healthy)
	broken.Close()

	r.Broadcast(ErrorEvent("MAINTENANCE", "going down"))

	ev := queuedEvent(t, healthy)
	if ev.Type != EventError {
		t.Errorf("expected %s, got %s", EventError, ev.Type)
	}
	if r.IsUserOnline(2) {
		t.Error("broken session should have been dropped")
	}
	if !r.IsUserOnline(1) {
		t.Error("healthy session must survive a peer's failure")
	}
}

func TestRegistry_CloseAll(t *testing.T) {
	r := newTestRegistry()
	s1, _ := newTestSession("s1", 1)
	s2, _ := newTestSession("s2", 2)
	r.Connect(s1)
	r.Connect(s2)

	r.CloseAll()

	if r.ConnectionCount() != 0 {
		t.Errorf("expected empty registry, got %d", r.ConnectionCount())
	}
	if !s1.Closed() || !s2.Closed() {
		t.Error("all sessions should be closed")
	}
}
