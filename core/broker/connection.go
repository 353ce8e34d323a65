package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"price-pipeline/core/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ErrClosed is returned once the connection has been closed by its owner.
var ErrClosed = errors.New("broker connection closed")

// Connection owns one AMQP connection and redials it lazily after a failure.
type Connection struct {
	cfg    Config
	logger *zap.Logger
	dial   func(url string) (*amqp.Connection, error)

	mu     sync.Mutex
	conn   *amqp.Connection
	closed bool
}

// NewConnection creates a connection holder. No network I/O happens until Open or Channel.
func NewConnection(cfg Config, l *zap.Logger) *Connection {
	return &Connection{
		cfg:    cfg,
		logger: logger.Component(l, "broker"),
		dial:   amqp.Dial,
	}
}

// Open dials the broker, returning an error when it is unreachable.
func (c *Connection) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.connectLocked()
	return err
}

func (c *Connection) connectLocked() (*amqp.Connection, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if c.conn != nil && !c.conn.IsClosed() {
		return c.conn, nil
	}

	conn, err := c.dial(c.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial broker: %w", err)
	}
	c.conn = conn
	c.logger.Info("Connected to broker")
	return conn, nil
}

// Channel opens a new channel, redialing if the connection dropped.
func (c *Connection) Channel() (*amqp.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.connectLocked()
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return ch, nil
}

// Setup opens a short-lived channel and declares the pipeline topology.
func (c *Connection) Setup(ctx context.Context) error {
	ch, err := c.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ctx.Err(); err != nil {
		return err
	}
	return DeclareTopology(ch, c.cfg)
}

// Close closes the underlying connection. Further use returns ErrClosed.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.conn == nil || c.conn.IsClosed() {
		return nil
	}
	return c.conn.Close()
}
