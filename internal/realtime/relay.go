package realtime

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/aqp/internal/aggregates"
	"github.com/odyssey-erp/aqp/internal/events"
	"github.com/odyssey-erp/aqp/internal/readings"
)

// Publisher writes realtime messages onto the Redis relay channel.
type Publisher struct {
	client  *redis.Client
	channel string
}

// NewPublisher builds a publisher for channel.
func NewPublisher(client *redis.Client, channel string) *Publisher {
	return &Publisher{client: client, channel: channel}
}

// Publish encodes data under event and publishes it.
func (p *Publisher) Publish(ctx context.Context, event string, data any) error {
	if p == nil || p.client == nil {
		return nil
	}
	msg, err := NewMessage(event, data)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, msg).Err()
}

// Progress publishes one aggregation progress update. It satisfies
// aggregates.ProgressFunc.
func (p *Publisher) Progress(ctx context.Context, progress aggregates.Progress) error {
	return p.Publish(ctx, EventAggregationProgress, progress)
}

// BridgeReadings forwards reading bus events to the relay channel.
func BridgeReadings(bus *events.Bus, p *Publisher) {
	events.On(bus, func(ctx context.Context, e readings.CreatedEvent) error {
		return p.Publish(ctx, EventReadingCreated, e.Reading)
	})
	events.On(bus, func(ctx context.Context, e readings.DeletedEvent) error {
		return p.Publish(ctx, EventReadingDeleted, e.Reading)
	})
}

// Relay subscribes to the channel, broadcasts every message to the hub and
// dispatches progress updates on the bus.
type Relay struct {
	client  *redis.Client
	channel string
	hub     *Hub
	bus     *events.Bus
	logger  *slog.Logger
}

// NewRelay wires a relay. bus may be nil.
func NewRelay(client *redis.Client, channel string, hub *Hub, bus *events.Bus, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{client: client, channel: channel, hub: hub, bus: bus, logger: logger}
}

// Run relays until ctx is cancelled or the subscription fails. ready, when
// non-nil, is closed once the subscription is confirmed.
func (r *Relay) Run(ctx context.Context, ready chan<- struct{}) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer func() {
		_ = sub.Close()
	}()
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	if ready != nil {
		close(ready)
	}
	r.logger.Info("realtime relay subscribed", slog.String("channel", r.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(ctx, []byte(msg.Payload))
		}
	}
}

func (r *Relay) handle(ctx context.Context, payload []byte) {
	if r.hub != nil {
		r.hub.Broadcast(payload)
	}
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		r.logger.Warn("realtime relay: malformed message", slog.Any("error", err))
		return
	}
	if msg.Event != EventAggregationProgress {
		return
	}
	var progress aggregates.Progress
	if err := json.Unmarshal(msg.Data, &progress); err != nil {
		r.logger.Warn("realtime relay: malformed progress", slog.Any("error", err))
		return
	}
	if err := events.Publish(ctx, r.bus, ProgressEvent{Progress: progress}); err != nil {
		r.logger.Warn("realtime progress handler failed", slog.Any("error", err))
	}
}
