package redisx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/redis/go-redis/v9"
)

const channelBookings = "cinebook:v1:bookings:changed"

// BookingsPubSub fans booking events out to every subscribed process. It backs
// the live seat-map stream.
type BookingsPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewBookingsPubSub(rdb *redis.Client) *BookingsPubSub {
	return &BookingsPubSub{
		rdb:     rdb,
		channel: channelBookings,
	}
}

func (p *BookingsPubSub) Name() string { return "redis" }

func (p *BookingsPubSub) Publish(ctx context.Context, ev domain.BookingEvent) error {
	const op = "redisx.BookingsPubSub.Publish"

	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := p.rdb.Publish(ctx, p.channel, b).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Subscribe blocks, invoking handler for every event received, until ctx is
// done or the subscription is closed.
func (p *BookingsPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, ev domain.BookingEvent)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	// wait for the subscription to be confirmed so no event is missed
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redisx.BookingsPubSub.Subscribe: %w", err)
	}

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev domain.BookingEvent
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil &&
				ev.SessionID != 0 {
				handler(ctx, ev)
			}
		}
	}
}
