package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	written chan []byte
	closed  chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{written: make(chan []byte, 16), closed: make(chan struct{})}
}

func (f *fakeConn) SetReadLimit(int64) {}
func (f *fakeConn) SetReadDeadline(time.Time) error { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeConn) Close() error { f.once.Do(func() { close(f.closed) }); return nil }
func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closed
	return 0, nil, errors.New("closed")
}

func (f *fakeConn) WriteMessage(t int, data []byte) error {
	if t == websocket.TextMessage || t == websocket.BinaryMessage {
		f.written <- data
	}
	return nil
}

func recv(t *testing.T, c *fakeConn) string {
	t.Helper()
	select {
	case b := <-c.written:
		return string(b)
	case <-time.After(time.Second):
		t.Fatal("no message")
		return ""
	}
}

func TestHub_TopicRouting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("feed", nil)
	go h.Run(ctx)

	all, alice, bob := newFakeConn(), newFakeConn(), newFakeConn()
	for conn, topic := range map[*fakeConn]string{all: "", alice: "alice", bob: "bob"} {
		go NewClient(h, conn, topic).Run()
	}
	require.Eventually(t, func() bool { return h.ClientCount() == 3 }, time.Second, 5*time.Millisecond)

	h.Broadcast(NewJSONMessage("alice", []byte(`{"count":1}`)))
	assert.Equal(t, `{"count":1}`, recv(t, all))
	assert.Equal(t, `{"count":1}`, recv(t, alice))

	select {
	case <-bob.written:
		t.Fatal("bob received alice's event")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, h.BroadcastJSON("", map[string]int{"n": 2}))
	assert.Equal(t, `{"n":2}`, recv(t, bob))
}

func TestHub_DisconnectAndShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	var counts []int
	h := New("preview", nil)
	h.OnCount = func(n int) {
		mu.Lock()
		counts = append(counts, n)
		mu.Unlock()
	}
	go h.Run(ctx)
	require.Eventually(t, h.IsRunning, time.Second, 5*time.Millisecond)

	conn := newFakeConn()
	go NewClient(h, conn, "").Run()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return !h.IsRunning() }, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 0, 0}, counts)
}
