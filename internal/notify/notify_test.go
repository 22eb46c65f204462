package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
	name string
}

func (m *mockPublisher) Name() string { return m.name }

func (m *mockPublisher) Publish(ctx context.Context, ev domain.BookingEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func event(seat int64) domain.BookingEvent {
	return domain.BookingEvent{
		Operation:  domain.OpCreated,
		ViewerID:   1,
		SessionID:  10,
		SeatID:     seat,
		OccurredAt: time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC),
	}
}

func TestFanout_PublishesToAllAndJoinsErrors(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	ok := &mockPublisher{name: "redis"}
	ok.On("Publish", mock.Anything, event(1)).Return(nil)

	broken := &mockPublisher{name: "kafka"}
	broken.On("Publish", mock.Anything, event(1)).Return(errors.New("broker down"))

	err := NewFanout(m, ok, broken).Publish(context.Background(), event(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka: broker down")

	ok.AssertExpectations(t)
	broken.AssertExpectations(t)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("redis", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("kafka", "failed")))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.BookingEvent
	err    error
}

func (r *recordingPublisher) Name() string { return "recording" }

func (r *recordingPublisher) Publish(_ context.Context, ev domain.BookingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestDispatcher_DeliversAndSwallowsFailures(t *testing.T) {
	rec := &recordingPublisher{err: errors.New("unreachable")}
	d := NewDispatcher(rec, discardLogger(), nil, DispatcherConfig{QueueSize: 8, Workers: 2})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, d.Publish(context.Background(), event(i)))
	}

	require.Eventually(t, func() bool { return rec.count() == 3 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	rec := &recordingPublisher{}
	d := NewDispatcher(rec, discardLogger(), m, DispatcherConfig{QueueSize: 1})

	require.NoError(t, d.Publish(context.Background(), event(1)))
	assert.ErrorIs(t, d.Publish(context.Background(), event(2)), ErrQueueFull)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("recording", "dropped")))
}

func TestDispatcher_FlushesOnShutdown(t *testing.T) {
	rec := &recordingPublisher{}
	d := NewDispatcher(rec, discardLogger(), nil, DispatcherConfig{QueueSize: 4, Workers: 1})

	require.NoError(t, d.Publish(context.Background(), event(1)))
	require.NoError(t, d.Publish(context.Background(), event(2)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Run(ctx))

	assert.Equal(t, 2, rec.count())
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisher_KeysBySession(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}

	require.NoError(t, p.Publish(context.Background(), event(4)))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "10", string(w.msgs[0].Key))

	var got domain.BookingEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, int64(4), got.SeatID)

	w.err = errors.New("leader not available")
	assert.Error(t, p.Publish(context.Background(), event(5)))
}

type fakeChannel struct {
	declared  []string
	published []amqp.Publishing
	failNext  bool
	closed    bool
}

func (c *fakeChannel) QueueDeclare(name string, durable, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	if !durable {
		return amqp.Queue{}, errors.New("queue must be durable")
	}
	c.declared = append(c.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (c *fakeChannel) PublishWithContext(_ context.Context, _, _ string, _, _ bool, msg amqp.Publishing) error {
	if c.failNext {
		c.failNext = false
		return amqp.ErrClosed
	}
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func TestAMQPPublisher_ReconnectsAfterFailure(t *testing.T) {
	var channels []*fakeChannel
	p := NewAMQPPublisher("amqp://test", "booking.events")
	p.dial = func(string) (amqpChannel, func() error, error) {
		ch := &fakeChannel{}
		if len(channels) == 0 {
			ch.failNext = true
		}
		channels = append(channels, ch)
		return ch, func() error { return nil }, nil
	}

	assert.Error(t, p.Publish(context.Background(), event(1)))
	require.Len(t, channels, 1)
	assert.True(t, channels[0].closed)

	require.NoError(t, p.Publish(context.Background(), event(2)))
	require.Len(t, channels, 2)
	assert.Equal(t, []string{"booking.events"}, channels[1].declared)
	require.Len(t, channels[1].published, 1)
	assert.Equal(t, uint8(amqp.Persistent), channels[1].published[0].DeliveryMode)
	assert.Equal(t, "Created", channels[1].published[0].Type)

	require.NoError(t, p.Close())
}
