// Package broadcast propagates branding change notifications across running
// instances. The primary channel is Redis pub/sub; when the server does not
// support it the bus falls back to polling a sentinel key.
package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	TypeUpdate     = "UPDATE"
	TypeInvalidate = "INVALIDATE"

	channelName = "branding-sync"
	sentinelKey = "branding-sync:latest"
)

// Message is the wire format for a sync notification. Origin identifies the
// sending instance so pollers can skip their own writes.
type Message struct {
	Type      string          `json:"type"`
	TenantID  string          `json:"tenantId"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
	Origin    string          `json:"origin"`
}

// Handler receives inbound messages. Handlers run synchronously in
// registration order; a slow handler delays the ones after it.
type Handler func(Message)

type Bus interface {
	PublishUpdate(ctx context.Context, tenantID string, data json.RawMessage) error
	PublishInvalidation(ctx context.Context, tenantID string) error
	Subscribe(fn Handler) (unsubscribe func())
	Close() error
}

// New probes whether the Redis server supports pub/sub and returns the
// matching bus. A nil client yields a NoopBus.
func New(ctx context.Context, client *redis.Client, origin string, pollInterval time.Duration) Bus {
	if client == nil {
		return NoopBus{}
	}
	if supportsPubSub(ctx, client) {
		return newRedisBus(client, origin)
	}
	return newPollBus(client, origin, pollInterval)
}

func supportsPubSub(ctx context.Context, client *redis.Client) bool {
	probe := client.Subscribe(ctx, channelName+":probe")
	defer probe.Close()

	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err := probe.Receive(probeCtx)
	return err == nil
}

// NoopBus is used when no Redis is configured. Publishes succeed silently so
// single-instance deployments need no special casing.
type NoopBus struct{}

func (NoopBus) PublishUpdate(context.Context, string, json.RawMessage) error { return nil }
func (NoopBus) PublishInvalidation(context.Context, string) error            { return nil }
func (NoopBus) Subscribe(Handler) func()                                     { return func() {} }
func (NoopBus) Close() error                                                 { return nil }

// clock issues strictly increasing timestamps even when two messages fall in
// the same nanosecond.
type clock struct {
	last atomic.Int64
}

func (c *clock) next() int64 {
	for {
		now := time.Now().UnixNano()
		last := c.last.Load()
		if now <= last {
			now = last + 1
		}
		if c.last.CompareAndSwap(last, now) {
			return now
		}
	}
}

// handlerSet is the shared subscriber registry for both bus implementations.
type handlerSet struct {
	mu       sync.Mutex
	nextID   int
	handlers []registeredHandler
}

type registeredHandler struct {
	id int
	fn Handler
}

func (h *handlerSet) add(fn Handler) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.handlers = append(h.handlers, registeredHandler{id: id, fn: fn})
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, reg := range h.handlers {
			if reg.id == id {
				h.handlers = append(h.handlers[:i], h.handlers[i+1:]...)
				return
			}
		}
	}
}

func (h *handlerSet) dispatch(msg Message) {
	h.mu.Lock()
	handlers := make([]registeredHandler, len(h.handlers))
	copy(handlers, h.handlers)
	h.mu.Unlock()
	for _, reg := range handlers {
		reg.fn(msg)
	}
}
