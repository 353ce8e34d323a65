package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrNacked is returned when the broker negatively acknowledges a publish.
var ErrNacked = errors.New("publish not confirmed by broker")

// ErrUnroutable is returned when a mandatory publish matched no queue.
var ErrUnroutable = errors.New("publish returned as unroutable")

const returnBuffer = 256

// Message is a persistent message to publish.
type Message struct {
	ID            string
	CorrelationID string
	ContentType   string
	Body          []byte
	Headers       map[string]any
	Timestamp     time.Time
}

func (m Message) publishing() amqp.Publishing {
	contentType := m.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	var headers amqp.Table
	if len(m.Headers) > 0 {
		headers = amqp.Table(m.Headers)
	}
	return amqp.Publishing{
		ContentType:   contentType,
		DeliveryMode:  amqp.Persistent,
		MessageId:     m.ID,
		CorrelationId: m.CorrelationID,
		Timestamp:     ts,
		Headers:       headers,
		Body:          m.Body,
	}
}

// Publisher publishes on a shared confirm-mode channel. Publishes are serialized on
// the channel; confirm waits are not.
type Publisher struct {
	conn    *Connection
	timeout time.Duration

	mu      sync.Mutex
	ch      *amqp.Channel
	returns *returnTracker
}

// NewPublisher creates a confirm-mode publisher over conn.
func NewPublisher(conn *Connection) *Publisher {
	return &Publisher{conn: conn, timeout: conn.cfg.ConfirmTimeout}
}

func (p *Publisher) channelLocked() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}
	p.ch = ch
	p.returns = newReturnTracker(ch.NotifyReturn(make(chan amqp.Return, returnBuffer)))
	return ch, nil
}

// Publish sends msg and blocks until the broker confirms it.
func (p *Publisher) Publish(ctx context.Context, exchange, routingKey string, msg Message) error {
	p.mu.Lock()
	ch, err := p.channelLocked()
	if err != nil {
		p.mu.Unlock()
		return err
	}
	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx, exchange, routingKey, true, false, msg.publishing())
	if err != nil {
		p.ch = nil
		p.mu.Unlock()
		return fmt.Errorf("failed to publish to %s/%s: %w", exchange, routingKey, err)
	}
	returns := p.returns
	p.mu.Unlock()

	waitCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	acked, err := confirm.WaitContext(waitCtx)
	if err != nil {
		return fmt.Errorf("failed waiting for confirm of %s: %w", msg.ID, err)
	}
	if !acked {
		return fmt.Errorf("%w: %s", ErrNacked, msg.ID)
	}
	return checkReturned(returns, msg.ID)
}

func checkReturned(returns *returnTracker, id string) error {
	if returns == nil || id == "" {
		return nil
	}
	if ret, ok := returns.take(id); ok {
		return fmt.Errorf("%w: %s (%d %s)", ErrUnroutable, id, ret.ReplyCode, ret.ReplyText)
	}
	return nil
}

// Close closes the publishing channel.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil || p.ch.IsClosed() {
		return nil
	}
	err := p.ch.Close()
	p.ch = nil
	return err
}
