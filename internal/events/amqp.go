// AngelaMos | 2026
// amqp.go

package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/streadway/amqp"

	"github.com/smarttaxi/user-service/internal/config"
)

var ErrPublisherClosed = errors.New("publisher closed")

type channel interface {
	Publish(
		exchange, key string,
		mandatory, immediate bool,
		msg amqp.Publishing,
	) error
	Close() error
}

const defaultPublishTimeout = 5 * time.Second

// AMQPPublisher writes events to a durable topic exchange, using the
// event type as routing key. Publishers queue for the channel at most
// timeout before giving up.
type AMQPPublisher struct {
	conn     *amqp.Connection
	sem      chan struct{}
	ch       channel
	exchange string
	timeout  time.Duration
	closed   bool
}

func Connect(
	ctx context.Context,
	url string,
	tries int,
	delay time.Duration,
) (*amqp.Connection, error) {
	if tries < 1 {
		tries = 1
	}

	var lastErr error
	for attempt := range tries {
		conn, err := amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		lastErr = err

		if attempt == tries-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect amqp: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("connect amqp after %d attempts: %w", tries, lastErr)
}

func NewAMQPPublisher(
	ctx context.Context,
	cfg config.EventsConfig,
) (*AMQPPublisher, error) {
	conn, err := Connect(ctx, cfg.URL, cfg.ConnectTries, cfg.ConnectDelay)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		amqp.ExchangeTopic,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}

	p := newAMQPPublisher(ch, cfg.Exchange, cfg.PublishTimeout)
	p.conn = conn
	return p, nil
}

func newAMQPPublisher(ch channel, exchange string, timeout time.Duration) *AMQPPublisher {
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &AMQPPublisher{
		sem:      make(chan struct{}, 1),
		ch:       ch,
		exchange: exchange,
		timeout:  timeout,
	}
}

func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event.Type, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         event.Type,
		Timestamp:    event.OccurredAt,
		Body:         body,
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// amqp channels are not safe for concurrent publishing
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", event.Type, ctx.Err())
	}
	defer func() { <-p.sem }()

	if p.closed {
		return fmt.Errorf("publish %s: %w", event.Type, ErrPublisherClosed)
	}

	if err := p.ch.Publish(p.exchange, event.Type, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	return nil
}

func (p *AMQPPublisher) Close() error {
	p.sem <- struct{}{}
	defer func() { <-p.sem }()

	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	if err := p.ch.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close channel: %w", err))
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}

	return errors.Join(errs...)
}
