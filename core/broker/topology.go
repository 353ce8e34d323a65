package broker

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Declarer is the subset of *amqp.Channel needed to declare topology.
type Declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// ItemQueueArgs returns the quorum queue arguments for the item queue.
func ItemQueueArgs(cfg Config) amqp.Table {
	args := amqp.Table{
		"x-queue-type":           "quorum",
		"x-dead-letter-exchange": cfg.DeadLetterExchange,
	}
	if cfg.DeliveryLimit > 0 {
		args["x-delivery-limit"] = int32(cfg.DeliveryLimit)
	}
	if cfg.MessageTTL > 0 {
		args["x-message-ttl"] = cfg.MessageTTL.Milliseconds()
	}
	return args
}

// DeclareTopology declares every exchange, queue and binding the pipeline uses.
// Declarations are idempotent, so every process may run it at startup.
func DeclareTopology(ch Declarer, cfg Config) error {
	if err := ch.ExchangeDeclare(cfg.DeadLetterExchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", cfg.DeadLetterExchange, err)
	}
	if _, err := ch.QueueDeclare(cfg.DeadLetterQueue, true, false, false, false, amqp.Table{"x-queue-type": "quorum"}); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", cfg.DeadLetterQueue, err)
	}
	if err := ch.QueueBind(cfg.DeadLetterQueue, "", cfg.DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", cfg.DeadLetterQueue, err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, ItemQueueArgs(cfg)); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", cfg.Queue, err)
	}
	if err := ch.QueueBind(cfg.Queue, cfg.BindingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", cfg.Queue, err)
	}

	if err := ch.ExchangeDeclare(cfg.StorageExchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", cfg.StorageExchange, err)
	}
	if _, err := ch.QueueDeclare(cfg.StorageQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", cfg.StorageQueue, err)
	}
	if err := ch.QueueBind(cfg.StorageQueue, cfg.StorageRoutingKey, cfg.StorageExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", cfg.StorageQueue, err)
	}
	return nil
}
