package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"journal/internal/storage"
)

func testClient(hub *Hub) *Client {
	return &Client{hub: hub, send: make(chan Message, 8)}
}

func recvMessage(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
		return Message{}
	}
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	c1 := testClient(hub)
	c2 := testClient(hub)
	hub.register <- c1
	hub.register <- c2

	hub.Broadcast(storage.Notification{Channel: "documents", Payload: `{"id":"x"}`})

	for _, c := range []*Client{c1, c2} {
		msg := recvMessage(t, c)
		assert.Equal(t, "documents", msg.Event)
		assert.Equal(t, `{"id":"x"}`, msg.Data)
	}
}

func TestHub_NoReplayForLateJoiners(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	early := testClient(hub)
	hub.register <- early
	hub.Broadcast(storage.Notification{Channel: "documents", Payload: "first"})
	recvMessage(t, early)

	late := testClient(hub)
	hub.register <- late

	select {
	case msg := <-late.send:
		t.Fatalf("late joiner received replayed message: %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_UnregisterClosesStream(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	c := testClient(hub)
	hub.register <- c
	hub.unregister <- c

	select {
	case _, ok := <-c.send:
		assert.False(t, ok, "send channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("send channel not closed after unregister")
	}

	// Broadcasting afterwards must not panic or deliver.
	hub.Broadcast(storage.Notification{Channel: "documents", Payload: "after"})
}

func TestHub_SendsDoNotBlockAfterShutdown(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	c := testClient(hub)
	hub.add(c)

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	// The relay and the stream handlers keep talking to the hub for a
	// moment after it stops; none of these may hang shutdown.
	released := make(chan struct{})
	go func() {
		hub.Broadcast(storage.Notification{Channel: "documents", Payload: "late"})
		hub.add(testClient(hub))
		hub.remove(c)
		close(released)
	}()

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("hub send blocked after shutdown")
	}

	// Registered clients had their streams closed on the way out.
	select {
	case _, ok := <-c.send:
		assert.False(t, ok, "send channel should be closed")
	default:
		t.Fatal("send channel not closed by shutdown")
	}
}

func TestHub_SlowClientDoesNotBlockOthers(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	slow := &Client{hub: hub, send: make(chan Message)} // no buffer, never read
	fast := testClient(hub)
	hub.register <- slow
	hub.register <- fast

	hub.Broadcast(storage.Notification{Channel: "documents", Payload: "p"})

	msg := recvMessage(t, fast)
	assert.Equal(t, "p", msg.Data)
}
