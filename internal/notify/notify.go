// Package notify delivers booking events to observers. Delivery is best
// effort: failures are logged and counted but never reach the booking path.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/metrics"
)

// Publisher is one delivery backend.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, ev domain.BookingEvent) error
}

// Fanout publishes every event to all backends and joins their errors.
type Fanout struct {
	pubs    []Publisher
	metrics *metrics.Metrics
}

func NewFanout(m *metrics.Metrics, pubs ...Publisher) *Fanout {
	return &Fanout{pubs: pubs, metrics: m}
}

func (f *Fanout) Name() string { return "fanout" }

func (f *Fanout) Publish(ctx context.Context, ev domain.BookingEvent) error {
	var errs []error
	for _, p := range f.pubs {
		if err := p.Publish(ctx, ev); err != nil {
			f.metrics.Notification(p.Name(), "failed")
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		f.metrics.Notification(p.Name(), "sent")
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

func (Nop) Name() string { return "none" }

func (Nop) Publish(context.Context, domain.BookingEvent) error { return nil }
