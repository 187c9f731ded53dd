package ws

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fakeConn records writes; tests inject it in place of a real connection.
type fakeConn struct {
	mu       sync.Mutex
	frames   [][]byte
	controls []int
	closed   bool
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, data)
	return nil
}

func (c *fakeConn) WriteControl(messageType int, data []byte, deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controls = append(c.controls, messageType)
	return nil
}

func (c *fakeConn) SetWriteDeadline(t time.Time) error { return nil }
func (c *fakeConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *fakeConn) SetPongHandler(h func(string) error) {}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func newTestSession(id string, userID int64) (*Session, *fakeConn) {
	conn := &fakeConn{}
	return NewSession(id, userID, conn, zap.NewNop()), conn
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	s, conn := newTestSession("s1", 1)

	s.CloseWithReason(4000, "session_replaced")
	s.Close()

	select {
	case <-s.Done():
	default:
		t.Error("Done channel should be closed after CloseWithReason")
	}
	if !s.Closed() {
		t.Error("session should report closed")
	}
	if !conn.isClosed() {
		t.Error("underlying connection should be closed")
	}
	if len(conn.controls) != 1 {
		t.Errorf("expected exactly one close frame, got %d", len(conn.controls))
	}
}

func TestSession_TrySendAfterClose(t *testing.T) {
	s, _ := newTestSession("s1", 1)
	s.Close()

	if s.TrySend([]byte("late")) {
		t.Error("TrySend on a closed session should fail")
	}
}

func TestSession_BackpressureOverflowClosesSession(t *testing.T) {
	s, _ := newTestSession("s1", 1)

	// No write loop running, so the queue fills up.
	for i := 0; i < sendQueueSize; i++ {
		if !s.TrySend([]byte("x")) {
			t.Fatalf("send %d should have been queued", i)
		}
	}

	if s.TrySend([]byte("overflow")) {
		t.Error("send beyond queue capacity should fail")
	}
	if !s.Closed() {
		t.Error("overflowing session should be closed")
	}
}
