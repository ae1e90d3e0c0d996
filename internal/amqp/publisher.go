package amqp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dafibh/fintrack/fintrack-backend/internal/event"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const (
	publishTimeout = 5 * time.Second
	queueSize      = 256
)

// channel is the subset of *amqp091.Channel the publisher uses
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher forwards domain events to a topic exchange. The routing key is
// the event type, e.g. "transaction.created". Publishing is asynchronous and
// a full queue drops the event with a warning.
type Publisher struct {
	conn     *amqp091.Connection
	channel  channel
	exchange string
	queue    chan event.Event
	wg       sync.WaitGroup
	once     sync.Once
}

// Dial connects to the broker at url and declares exchange
func Dial(url, exchange string) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p, err := newPublisher(ch, exchange)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange string) (*Publisher, error) {
	err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	p := &Publisher{
		channel:  ch,
		exchange: exchange,
		queue:    make(chan event.Event, queueSize),
	}
	p.wg.Add(1)
	go p.run()
	return p, nil
}

var _ event.Publisher = (*Publisher)(nil)

// Publish implements event.Publisher
func (p *Publisher) Publish(evt event.Event) {
	select {
	case p.queue <- evt:
	default:
		log.Warn().
			Str("event_type", evt.Type).
			Str("exchange", p.exchange).
			Msg("AMQP publish queue full, dropping event")
	}
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for evt := range p.queue {
		if err := p.send(context.Background(), evt); err != nil {
			log.Error().
				Err(err).
				Str("event_type", evt.Type).
				Str("exchange", p.exchange).
				Msg("Failed to publish event")
		}
	}
}

func (p *Publisher) send(ctx context.Context, evt event.Event) error {
	body, err := evt.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange, // exchange
		evt.Type,   // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    evt.Timestamp,
			Type:         evt.Type,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	log.Debug().
		Str("event_type", evt.Type).
		Str("exchange", p.exchange).
		Msg("Published event")
	return nil
}

// Close flushes queued events and closes the channel and connection.
// Publish must not be called after Close.
func (p *Publisher) Close() error {
	var err error
	p.once.Do(func() {
		close(p.queue)
		p.wg.Wait()
		if p.channel != nil {
			p.channel.Close()
		}
		if p.conn != nil {
			err = p.conn.Close()
		}
	})
	return err
}
