package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"log/slog"

	"github.com/Rajatg180/issueFlow-Project/internal/app"
	"github.com/Rajatg180/issueFlow-Project/pkg/metrics"
)

// Channel is the single pub/sub channel shared by every instance of the
// deployment. The room key travels inside each payload.
const Channel = "issueflow:comments"

const (
	pollInterval = time.Second
	retryBackoff = 2 * time.Second
)

// Bus replicates comment events across instances over Redis pub/sub.
//
// It is an explicitly best-effort side channel: Publish is fire-and-forget,
// and the subscriber keeps retrying while Redis is absent. The host process
// never fails because the bus is down; fan-out just stops until it is back.
type Bus struct {
	rdb *redis.Client
	log *slog.Logger
}

// NewBus creates the Redis client and probes connectivity. An unreachable
// Redis is logged, not fatal; the client reconnects on its own once the
// server shows up.
func NewBus(ctx context.Context, cfg app.Config, log *slog.Logger) *Bus {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn("bus.unavailable", "addr", cfg.RedisAddr, "err", err)
	} else {
		log.Info("bus.connected", "addr", cfg.RedisAddr)
	}
	return &Bus{rdb: rdb, log: log}
}

// Publish sends ev on the shared channel. Fire-and-forget: a marshal or
// transport failure is logged and dropped so the write path that triggered
// the event can never fail on account of the bus.
func (b *Bus) Publish(ctx context.Context, ev FanoutEvent) {
	raw, err := json.Marshal(ev)
	if err != nil {
		b.log.Warn("bus.publish.marshal", "type", ev.Type, "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := b.rdb.Publish(ctx, Channel, raw).Err(); err != nil {
		b.log.Warn("bus.publish.drop", "type", ev.Type, "err", err)
		return
	}
	metrics.EventsPublished.Inc()
}

// Subscribe runs the per-process subscriber loop until ctx is cancelled.
// Each received event is handed to sink; decode failures and sink panics
// are swallowed per message. While Redis is unreachable the loop backs off
// and retries instead of terminating.
func (b *Bus) Subscribe(ctx context.Context, sink EventSink) {
	for {
		if err := b.receiveLoop(ctx, sink); err != nil {
			b.log.Warn("bus.subscribe.retry", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(retryBackoff):
		}
	}
}

func (b *Bus) receiveLoop(ctx context.Context, sink EventSink) error {
	pubsub := b.rdb.Subscribe(ctx, Channel)
	defer func() {
		// Shutdown may arrive with ctx already done; give the unsubscribe
		// its own deadline so the handle is still released.
		unsubCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = pubsub.Unsubscribe(unsubCtx, Channel)
		_ = pubsub.Close()
	}()

	// Confirm the subscription before polling for messages.
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	b.log.Info("bus.subscribed", "channel", Channel)

	for {
		msg, err := pubsub.ReceiveTimeout(ctx, pollInterval)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue // poll tick; stay responsive to cancellation
			}
			return err
		}
		m, ok := msg.(*redis.Message)
		if !ok {
			continue // subscription confirmations, pongs
		}
		ev, ok := decodeEvent([]byte(m.Payload))
		if !ok {
			b.log.Debug("bus.decode.drop", "payload_len", len(m.Payload))
			continue
		}
		b.deliver(sink, ev)
	}
}

// deliver isolates the sink: one misbehaving broadcast never takes the
// subscriber loop down with it.
func (b *Bus) deliver(sink EventSink, ev FanoutEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("bus.deliver.panic", "type", ev.Type, "panic", r)
		}
	}()
	sink.Deliver(ev)
}

// Close shuts down the redis connection
func (b *Bus) Close() { _ = b.rdb.Close() }
