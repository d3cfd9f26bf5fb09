package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/amirasaad/bankcore/pkg/eventbus"

	"github.com/redis/go-redis/v9"
)

// ErrUnknownEventType is returned when a stream entry names a type with no registered factory.
var ErrUnknownEventType = errors.New("unknown event type")

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Factories maps an event type to a constructor of the value its payload decodes into.
type Factories map[string]func() eventbus.Event

// RedisEventBus publishes events to a Redis stream and consumes them through a consumer group.
type RedisEventBus struct {
	client    *redis.Client
	stream    string
	group     string
	consumer  string
	factories Factories
	logger    *slog.Logger

	mu       sync.RWMutex
	handlers map[string][]eventbus.HandlerFunc
}

// NewWithRedis creates a Redis-backed bus on stream and ensures the consumer group exists.
func NewWithRedis(ctx context.Context, client *redis.Client, stream, group string, factories Factories, logger *slog.Logger) (*RedisEventBus, error) {
	if client == nil || stream == "" || group == "" {
		return nil, fmt.Errorf("redis event bus: client, stream, and group are required")
	}
	err := client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("redis event bus: create group: %w", err)
	}
	return &RedisEventBus{
		client:    client,
		stream:    stream,
		group:     group,
		consumer:  fmt.Sprintf("consumer-%d", time.Now().UnixNano()),
		factories: factories,
		logger:    logger.With("component", "redis-event-bus", "stream", stream),
		handlers:  make(map[string][]eventbus.HandlerFunc),
	}, nil
}

// Emit appends the event to the stream.
func (b *RedisEventBus) Emit(ctx context.Context, event eventbus.Event) error {
	raw, err := encode(event)
	if err != nil {
		return fmt.Errorf("redis event bus: %w", err)
	}
	if err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		Values: map[string]any{"event": raw},
	}).Err(); err != nil {
		return fmt.Errorf("redis event bus: emit failed: %w", err)
	}
	b.logger.Debug("event emitted", "type", event.Type())
	return nil
}

// Register adds a handler for eventType. Handlers run on the goroutine executing Run.
func (b *RedisEventBus) Register(eventType string, handler eventbus.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Run consumes the stream until ctx is done. Entries whose handler fails or panics are
// copied to the dead-letter stream and acknowledged.
func (b *RedisEventBus) Run(ctx context.Context) error {
	b.logger.Info("consumer started", "group", b.group, "consumer", b.consumer)
	for {
		res, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    b.group,
			Consumer: b.consumer,
			Streams:  []string{b.stream, ">"},
			Count:    16,
			Block:    2 * time.Second,
		}).Result()
		if ctx.Err() != nil {
			b.logger.Info("consumer stopped")
			return nil
		}
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				b.logger.Error("error reading from stream", "error", err)
				time.Sleep(time.Second)
			}
			continue
		}
		for _, stream := range res {
			for _, msg := range stream.Messages {
				b.handle(ctx, msg)
			}
		}
	}
}

func (b *RedisEventBus) handle(ctx context.Context, msg redis.XMessage) {
	defer func() {
		if err := b.client.XAck(ctx, b.stream, b.group, msg.ID).Err(); err != nil {
			b.logger.Error("failed to acknowledge message", "error", err, "msg_id", msg.ID)
		}
	}()

	raw, _ := msg.Values["event"].(string)
	event, err := b.factories.decode(raw)
	if err != nil {
		b.logger.Error("failed to decode event", "error", err, "msg_id", msg.ID)
		b.pushToDLQ(ctx, msg.Values)
		return
	}

	b.mu.RLock()
	handlers := append([]eventbus.HandlerFunc(nil), b.handlers[event.Type()]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := b.invoke(ctx, handler, event); err != nil {
			b.logger.Error("handler error", "error", err, "type", event.Type())
			b.pushToDLQ(ctx, msg.Values)
			return
		}
	}
}

func (b *RedisEventBus) invoke(ctx context.Context, handler eventbus.HandlerFunc, event eventbus.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, event)
}

// DeadLetterStream is the stream failed entries are copied to.
func (b *RedisEventBus) DeadLetterStream() string {
	return b.stream + "-DLQ"
}

func (b *RedisEventBus) pushToDLQ(ctx context.Context, values map[string]any) {
	dlq := b.DeadLetterStream()
	if err := b.client.XAdd(ctx, &redis.XAddArgs{Stream: dlq, Values: values}).Err(); err != nil {
		b.logger.Error("failed to push to DLQ", "error", err, "stream", dlq)
		return
	}
	b.logger.Warn("event pushed to DLQ", "stream", dlq)
}

func encode(event eventbus.Event) (string, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", event.Type(), err)
	}
	raw, err := json.Marshal(envelope{Type: event.Type(), Payload: payload})
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}
	return string(raw), nil
}

func (f Factories) decode(raw string) (eventbus.Event, error) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	constructor, ok := f[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, env.Type)
	}
	event := constructor()
	if err := json.Unmarshal(env.Payload, event); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", env.Type, err)
	}
	return event, nil
}

var _ eventbus.Bus = (*RedisEventBus)(nil)
