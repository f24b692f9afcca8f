package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// RedisBus delivers messages over a Redis pub/sub channel.
type RedisBus struct {
	client   *redis.Client
	origin   string
	clock    clock
	handlers handlerSet
	pubsub   *redis.PubSub
	done     chan struct{}
}

func newRedisBus(client *redis.Client, origin string) *RedisBus {
	b := &RedisBus{
		client: client,
		origin: origin,
		done:   make(chan struct{}),
	}
	b.pubsub = client.Subscribe(context.Background(), channelName)
	go b.receive()
	return b
}

func (b *RedisBus) receive() {
	ch := b.pubsub.Channel()
	for {
		select {
		case <-b.done:
			return
		case raw, ok := <-ch:
			if !ok {
				return
			}
			var msg Message
			if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
				log.Printf("broadcast: drop malformed message: %v", err)
				continue
			}
			// Redis delivers published messages back to the publisher;
			// subscribers must only see other instances' writes.
			if msg.Origin == b.origin {
				continue
			}
			b.handlers.dispatch(msg)
		}
	}
}

func (b *RedisBus) publish(ctx context.Context, msg Message) error {
	msg.Timestamp = b.clock.next()
	msg.Origin = b.origin
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal sync message: %w", err)
	}
	if err := b.client.Publish(ctx, channelName, payload).Err(); err != nil {
		return fmt.Errorf("publish sync message: %w", err)
	}
	return nil
}

func (b *RedisBus) PublishUpdate(ctx context.Context, tenantID string, data json.RawMessage) error {
	return b.publish(ctx, Message{Type: TypeUpdate, TenantID: tenantID, Data: data})
}

func (b *RedisBus) PublishInvalidation(ctx context.Context, tenantID string) error {
	return b.publish(ctx, Message{Type: TypeInvalidate, TenantID: tenantID})
}

func (b *RedisBus) Subscribe(fn Handler) func() {
	return b.handlers.add(fn)
}

func (b *RedisBus) Close() error {
	close(b.done)
	return b.pubsub.Close()
}
