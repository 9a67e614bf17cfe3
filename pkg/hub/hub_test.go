package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-ask/internal/log"
)

func register(t *testing.T, h *Hub, buf int) *Client {
	t.Helper()
	c := &Client{hub: h, outbox: make(chan []byte, buf)}
	require.True(t, h.attach(c))
	return c
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.outbox:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message")
		return nil
	}
}

func TestPublishFansOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("test", log.Discard())
	go h.Run(ctx)

	a := register(t, h, 4)
	b := register(t, h, 4)
	require.Equal(t, 2, h.ClientCount())

	require.NoError(t, h.Publish("status", map[string]string{"state": "listening"}))

	for _, c := range []*Client{a, b} {
		var ev struct {
			Type string            `json:"type"`
			Data map[string]string `json:"data"`
		}
		require.NoError(t, json.Unmarshal(receive(t, c), &ev))
		assert.Equal(t, "status", ev.Type)
		assert.Equal(t, "listening", ev.Data["state"])
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("test", log.Discard())
	go h.Run(ctx)

	register(t, h, 0)
	require.Equal(t, 1, h.ClientCount())

	h.Broadcast([]byte("x"))
	assert.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestRunStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New("test", log.Discard())
	go h.Run(ctx)

	c := register(t, h, 1)
	cancel()

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	_, ok := <-c.outbox
	assert.False(t, ok, "client channel should be closed")
	assert.Nil(t, NewClient(h, nil))
}

func TestSendReachesOneClient(t *testing.T) {
	h := New("test", log.Discard())
	a := register(t, h, 1)
	b := register(t, h, 1)

	a.Send([]byte("snapshot"))
	assert.Equal(t, []byte("snapshot"), receive(t, a))
	assert.Empty(t, b.outbox)

	h.detach(a)
	a.Send([]byte("late"))
	_, ok := <-a.outbox
	assert.False(t, ok)
}
