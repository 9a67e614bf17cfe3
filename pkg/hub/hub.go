package hub

import (
	"context"
	"log/slog"
	"sync"
)

const queueSize = 256

// Hub fans encoded events out to websocket subscribers. Publishing never
// blocks the caller: events go through a bounded queue, and a subscriber
// whose own buffer is full is disconnected rather than waited on.
type Hub struct {
	name   string
	logger *slog.Logger
	queue  chan []byte

	mu      sync.Mutex
	subs    map[*Client]struct{}
	stopped bool
	done    chan struct{}
}

// New creates a hub. name only appears in logs.
func New(name string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		name:   name,
		logger: logger.With("component", "hub", "hub", name),
		queue:  make(chan []byte, queueSize),
		subs:   make(map[*Client]struct{}),
		done:   make(chan struct{}),
	}
}

// Run delivers queued events until ctx is done, then disconnects every
// subscriber and closes Done.
func (h *Hub) Run(ctx context.Context) {
	defer h.stop()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-h.queue:
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.subs {
		select {
		case c.outbox <- msg:
		default:
			delete(h.subs, c)
			close(c.outbox)
			h.logger.Info("subscriber too slow, disconnected", "subscribers", len(h.subs))
		}
	}
}

func (h *Hub) stop() {
	h.mu.Lock()
	h.stopped = true
	for c := range h.subs {
		delete(h.subs, c)
		close(c.outbox)
	}
	h.mu.Unlock()
	close(h.done)
}

// attach adds c unless the hub has stopped.
func (h *Hub) attach(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return false
	}
	h.subs[c] = struct{}{}
	h.logger.Debug("subscriber attached", "subscribers", len(h.subs))
	return true
}

// detach removes c if it is still subscribed.
func (h *Hub) detach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[c]; !ok {
		return
	}
	delete(h.subs, c)
	close(c.outbox)
	h.logger.Debug("subscriber detached", "subscribers", len(h.subs))
}

// Broadcast queues raw data for every subscriber. When the queue is full
// the data is dropped.
func (h *Hub) Broadcast(data []byte) {
	select {
	case h.queue <- data:
	default:
		// Debug only: the dashboard log stream is itself a hub.
		h.logger.Debug("queue full, event dropped")
	}
}

// Publish encodes data as an Event of type typ and broadcasts it.
func (h *Hub) Publish(typ string, data any) error {
	msg, err := NewEvent(typ, data).Encode()
	if err != nil {
		return err
	}
	h.Broadcast(msg)
	return nil
}

// ClientCount returns the number of subscribers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}
