package network

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/payportal/internal/logging"
	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

const dialTimeout = 10 * time.Second

type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// dialAMQP is a seam for testing.
var dialAMQP = func(rawURL string) (*amqp091.Connection, error) {
	return amqp091.DialConfig(rawURL, amqp091.Config{Dial: amqp091.DefaultDial(dialTimeout)})
}

// AMQPPublisher publishes JSON events to a durable topic exchange.
type AMQPPublisher struct {
	mu       sync.Mutex
	exchange string
	open     func() (amqpChannel, error)
	closer   func() error
	channel  amqpChannel
	declared bool
	logger   logging.Logger
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	if idx := strings.Index(strings.ToLower(clean), "amqp"); idx > 0 {
		clean = clean[idx:]
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewAMQPPublisher connects to the broker at rawURL.
func NewAMQPPublisher(rawURL, exchange string, logger logging.Logger) (*AMQPPublisher, error) {
	clean, err := sanitizeAMQPURL(rawURL)
	if err != nil {
		return nil, err
	}

	conn, err := dialAMQP(clean)
	if err != nil {
		return nil, err
	}

	open := func() (amqpChannel, error) { return conn.Channel() }
	p := newPublisher(exchange, open, conn.Close, logger)

	if p.channel, err = open(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return p, nil
}

func newPublisher(exchange string, open func() (amqpChannel, error), closer func() error, logger logging.Logger) *AMQPPublisher {
	return &AMQPPublisher{
		exchange: exchange,
		open:     open,
		closer:   closer,
		logger:   logger.With("module", "amqp"),
	}
}

func (p *AMQPPublisher) declare() error {
	if p.declared {
		return nil
	}
	if err := p.channel.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	p.declared = true
	return nil
}

// reopen replaces a broken channel once.
func (p *AMQPPublisher) reopen() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	ch, err := p.open()
	if err != nil {
		return err
	}
	p.channel = ch
	p.declared = false
	return p.declare()
}

// Publish marshals body to JSON and publishes it as a persistent message.
// A failed publish is retried once on a fresh channel.
func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now(),
		Body:         payload,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil {
		if err := p.reopen(); err != nil {
			return err
		}
	} else if err := p.declare(); err != nil {
		p.logger.Warn(ctx, "exchange declare failed, reopening channel", "exchange", p.exchange, "error", err)
		if err := p.reopen(); err != nil {
			return err
		}
	}

	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg)
	if err == nil {
		return nil
	}

	p.logger.Warn(ctx, "publish failed, reopening channel", "exchange", p.exchange, "routing_key", routingKey, "error", err)
	if rerr := p.reopen(); rerr != nil {
		return errors.Join(err, rerr)
	}
	return p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg)
}

// Close closes the channel and the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.channel != nil {
		errs = append(errs, p.channel.Close())
		p.channel = nil
	}
	if p.closer != nil {
		errs = append(errs, p.closer())
	}
	return errors.Join(errs...)
}
