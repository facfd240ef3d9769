package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// channel is the slice of *amqp.Channel the publisher uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// connection is the slice of *amqp.Connection the publisher uses.
type connection interface {
	Channel() (channel, error)
	IsClosed() bool
	Close() error
}

type amqpConn struct{ *amqp.Connection }

func (c amqpConn) Channel() (channel, error) { return c.Connection.Channel() }

func dialAMQP(url string) (connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return amqpConn{conn}, nil
}

// Publisher sends events to a durable queue on the default exchange as
// persistent JSON messages. The broker connection is opened on first use and
// reopened after a failure, so a broker that is down at startup does not
// keep the service from starting.
type Publisher struct {
	URL   string
	Queue string

	dial func(url string) (connection, error)

	mu   sync.Mutex
	conn connection
	ch   channel
}

// NewPublisher returns a publisher for queue at url. No connection is made yet.
func NewPublisher(url, queue string) *Publisher {
	return &Publisher{URL: url, Queue: queue, dial: dialAMQP}
}

// Publish sends ev. ev.OccurredAt defaults to now.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	if ev.Type == "" {
		return errors.New("events: event type is required")
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events: marshal: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channelLocked()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx,
		"",      // default exchange
		p.Queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    ev.OccurredAt,
			Type:         ev.Type,
			Body:         body,
		},
	)
	if err != nil {
		log.Warn().Err(err).Str("queue", p.Queue).Msg("amqp publish failed; reconnecting on next event")
		p.resetLocked()
		return fmt.Errorf("events: publish: %w", err)
	}
	return nil
}

func (p *Publisher) channelLocked() (channel, error) {
	if p.ch != nil && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.resetLocked()

	dial := p.dial
	if dial == nil {
		dial = dialAMQP
	}
	conn, err := dial(p.URL)
	if err != nil {
		return nil, fmt.Errorf("events: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("events: channel: %w", err)
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("events: queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Close releases the broker connection, if any.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
	return nil
}
