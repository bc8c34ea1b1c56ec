package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func assertNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected message %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubRoutesByTopic(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	alice := NewClient(hub, nil, "alice", GlobalTopic, "user:alice")
	bob := NewClient(hub, nil, "bob", GlobalTopic, "user:bob")
	hub.Register <- alice
	hub.Register <- bob

	hub.Publish(GlobalTopic, "event_completed", map[string]int{"points": 56})
	msg := receive(t, alice)
	assert.Equal(t, "event_completed", msg.Action)
	assert.Equal(t, GlobalTopic, msg.Topic)
	receive(t, bob)

	hub.Publish("user:alice", "points_awarded", 56)
	msg = receive(t, alice)
	assert.Equal(t, "points_awarded", msg.Action)
	assertNothing(t, bob)

	hub.Subscribe(bob, "leaderboard")
	hub.Publish("leaderboard", "leaderboard_updated", nil)
	receive(t, bob)
	assertNothing(t, alice)

	hub.SendTo(alice, NewErrorMessage("nope"))
	msg = receive(t, alice)
	assert.Equal(t, "error", msg.Action)

	hub.Unregister <- bob
	_, ok := <-bob.Send
	assert.False(t, ok)

	cancel()
	<-hub.Done()
	_, ok = <-alice.Send
	assert.False(t, ok)

	// Publishing after shutdown must not block.
	hub.Publish(GlobalTopic, "late", nil)
	hub.SendTo(alice, []byte("late"))
}

func TestHubDropsSlowClients(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		<-hub.Done()
	}()
	go hub.Run(ctx)

	slow := &Client{hub: hub, UserID: "slow", Topics: []string{GlobalTopic}, Send: make(chan []byte, 1)}
	slow.Send <- []byte("backlog")
	hub.Register <- slow
	fast := NewClient(hub, nil, "fast", GlobalTopic)
	hub.Register <- fast
	hub.Publish(GlobalTopic, "tick", nil)
	receive(t, fast)
	// Run is single threaded, so once this registration is accepted the
	// broadcast has been fully delivered.
	hub.Register <- NewClient(hub, nil, "probe")

	deadline := time.After(time.Second)
	for {
		select {
		case data, ok := <-slow.Send:
			if !ok {
				return
			}
			assert.Equal(t, "backlog", string(data))
		case <-deadline:
			t.Fatal("slow client was not dropped")
		}
	}
}
