package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/metrics"
)

var ErrQueueFull = errors.New("notify: queue full")

type DispatcherConfig struct {
	QueueSize      int
	Workers        int
	PublishTimeout time.Duration
}

// Dispatcher decouples callers from delivery: Publish only enqueues and
// workers started by Run hand events to the backend.
type Dispatcher struct {
	pub     Publisher
	log     *slog.Logger
	metrics *metrics.Metrics
	cfg     DispatcherConfig
	queue   chan domain.BookingEvent
}

func NewDispatcher(pub Publisher, log *slog.Logger, m *metrics.Metrics, cfg DispatcherConfig) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 3 * time.Second
	}

	return &Dispatcher{
		pub:     pub,
		log:     log,
		metrics: m,
		cfg:     cfg,
		queue:   make(chan domain.BookingEvent, cfg.QueueSize),
	}
}

func (d *Dispatcher) Name() string { return "dispatcher" }

// Publish enqueues ev without blocking. It returns ErrQueueFull when the
// backlog is full and the event is dropped.
func (d *Dispatcher) Publish(_ context.Context, ev domain.BookingEvent) error {
	select {
	case d.queue <- ev:
		return nil
	default:
		d.metrics.Notification(d.pub.Name(), "dropped")
		return ErrQueueFull
	}
}

// Run delivers queued events until ctx is done, then flushes what is left
// in the queue with a bounded deadline.
func (d *Dispatcher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < d.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case ev := <-d.queue:
					d.deliver(context.WithoutCancel(ctx), ev)
				}
			}
		}()
	}
	wg.Wait()

	d.flush(context.WithoutCancel(ctx))
	return nil
}

func (d *Dispatcher) flush(ctx context.Context) {
	deadline := time.Now().Add(d.cfg.PublishTimeout)
	for time.Now().Before(deadline) {
		select {
		case ev := <-d.queue:
			d.deliver(ctx, ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev domain.BookingEvent) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.PublishTimeout)
	defer cancel()

	if err := d.pub.Publish(ctx, ev); err != nil {
		d.log.Warn("booking event not delivered",
			slog.String("operation", string(ev.Operation)),
			slog.Int64("session_id", ev.SessionID),
			slog.Int64("seat_id", ev.SeatID),
			slog.String("err", err.Error()),
		)
	}
}
