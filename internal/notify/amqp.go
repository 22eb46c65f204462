package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kirinyoku/cinebook/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type amqpDialer func(url string) (amqpChannel, func() error, error)

func dialAMQP(url string) (amqpChannel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	return ch, conn.Close, nil
}

// AMQPPublisher publishes persistent messages to a durable queue through the
// default exchange. The connection is opened lazily and reopened after a
// failed publish.
type AMQPPublisher struct {
	url   string
	queue string
	dial  amqpDialer

	mu        sync.Mutex
	ch        amqpChannel
	closeConn func() error
}

func NewAMQPPublisher(url, queue string) *AMQPPublisher {
	return &AMQPPublisher{url: url, queue: queue, dial: dialAMQP}
}

func (p *AMQPPublisher) Name() string { return "amqp" }

func (p *AMQPPublisher) channel() (amqpChannel, error) {
	if p.ch != nil {
		return p.ch, nil
	}

	ch, closeConn, err := p.dial(p.url)
	if err != nil {
		return nil, err
	}

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = closeConn()
		return nil, err
	}

	p.ch, p.closeConn = ch, closeConn
	return ch, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev domain.BookingEvent) error {
	const op = "notify.AMQPPublisher.Publish"

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.OccurredAt,
		Type:         string(ev.Operation),
		Body:         body,
	})
	if err != nil {
		p.reset()
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.closeConn != nil {
		_ = p.closeConn()
	}
	p.ch, p.closeConn = nil, nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.reset()
	return nil
}
