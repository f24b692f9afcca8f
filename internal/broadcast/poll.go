package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const sentinelTTL = time.Hour

// PollBus is the fallback transport: publishes overwrite a sentinel key and
// every instance polls it. Slower than pub/sub but works on any key-value
// backend.
type PollBus struct {
	client   *redis.Client
	origin   string
	interval time.Duration
	clock    clock
	handlers handlerSet

	mu       sync.Mutex
	lastSeen int64

	done     chan struct{}
	stopOnce sync.Once
}

func newPollBus(client *redis.Client, origin string, interval time.Duration) *PollBus {
	if interval <= 0 {
		interval = time.Second
	}
	b := &PollBus{
		client:   client,
		origin:   origin,
		interval: interval,
		done:     make(chan struct{}),
	}
	go b.poll()
	return b
}

func (b *PollBus) poll() {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.checkSentinel()
		}
	}
}

func (b *PollBus) checkSentinel() {
	ctx, cancel := context.WithTimeout(context.Background(), b.interval)
	defer cancel()

	raw, err := b.client.Get(ctx, sentinelKey).Bytes()
	if err != nil {
		return
	}
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("broadcast: drop malformed sentinel: %v", err)
		return
	}
	// Skip our own writes and anything already delivered.
	if msg.Origin == b.origin {
		return
	}
	b.mu.Lock()
	if msg.Timestamp <= b.lastSeen {
		b.mu.Unlock()
		return
	}
	b.lastSeen = msg.Timestamp
	b.mu.Unlock()

	b.handlers.dispatch(msg)
}

func (b *PollBus) publish(ctx context.Context, msg Message) error {
	msg.Timestamp = b.clock.next()
	msg.Origin = b.origin
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal sync message: %w", err)
	}
	if err := b.client.Set(ctx, sentinelKey, payload, sentinelTTL).Err(); err != nil {
		return fmt.Errorf("write sync sentinel: %w", err)
	}
	return nil
}

func (b *PollBus) PublishUpdate(ctx context.Context, tenantID string, data json.RawMessage) error {
	return b.publish(ctx, Message{Type: TypeUpdate, TenantID: tenantID, Data: data})
}

func (b *PollBus) PublishInvalidation(ctx context.Context, tenantID string) error {
	return b.publish(ctx, Message{Type: TypeInvalidate, TenantID: tenantID})
}

func (b *PollBus) Subscribe(fn Handler) func() {
	return b.handlers.add(fn)
}

func (b *PollBus) Close() error {
	b.stopOnce.Do(func() { close(b.done) })
	return nil
}
