package broker

import (
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type declaration struct {
	kind string
	name string
	arg  string
	args amqp.Table
}

type recordingDeclarer struct {
	calls   []declaration
	failOn  string
	failErr error
}

func (r *recordingDeclarer) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	r.calls = append(r.calls, declaration{kind: "exchange", name: name, arg: kind, args: args})
	if name == r.failOn {
		return r.failErr
	}
	return nil
}

func (r *recordingDeclarer) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	r.calls = append(r.calls, declaration{kind: "queue", name: name, args: args})
	if name == r.failOn {
		return amqp.Queue{}, r.failErr
	}
	return amqp.Queue{Name: name}, nil
}

func (r *recordingDeclarer) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	r.calls = append(r.calls, declaration{kind: "bind", name: name, arg: exchange + "/" + key})
	return nil
}

func testConfig() Config {
	return Config{
		Exchange:           "price.updates",
		Queue:              "price.updates.queue",
		BindingKey:         "price.#",
		DeadLetterExchange: "price.updates.dlx",
		DeadLetterQueue:    "price.updates.dlq",
		DeliveryLimit:      5,
		MessageTTL:         time.Hour,
		StorageExchange:    "storage.events",
		StorageQueue:       "storage.events.queue",
		StorageRoutingKey:  "storage.notification",
	}
}

func TestDeclareTopology(t *testing.T) {
	d := &recordingDeclarer{}
	require.NoError(t, DeclareTopology(d, testConfig()))

	var binds []string
	for _, c := range d.calls {
		if c.kind == "bind" {
			binds = append(binds, c.name+"<-"+c.arg)
		}
	}
	assert.Equal(t, []string{
		"price.updates.dlq<-price.updates.dlx/",
		"price.updates.queue<-price.updates/price.#",
		"storage.events.queue<-storage.events/storage.notification",
	}, binds)

	var itemQueue declaration
	for _, c := range d.calls {
		if c.kind == "queue" && c.name == "price.updates.queue" {
			itemQueue = c
		}
		if c.kind == "exchange" && c.name == "price.updates" {
			assert.Equal(t, amqp.ExchangeTopic, c.arg)
		}
	}
	assert.Equal(t, "quorum", itemQueue.args["x-queue-type"])
	assert.Equal(t, "price.updates.dlx", itemQueue.args["x-dead-letter-exchange"])
	assert.Equal(t, int32(5), itemQueue.args["x-delivery-limit"])
	assert.Equal(t, int64(3600000), itemQueue.args["x-message-ttl"])
}

func TestDeclareTopology_Error(t *testing.T) {
	d := &recordingDeclarer{failOn: "price.updates", failErr: errors.New("access refused")}
	err := DeclareTopology(d, testConfig())
	assert.ErrorContains(t, err, "price.updates")
	assert.ErrorContains(t, err, "access refused")
}

func TestMessage_Publishing(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	p := Message{
		ID:            "m-1",
		CorrelationID: "c-1",
		Body:          []byte(`{}`),
		Headers:       map[string]any{"batchId": "b-1"},
		Timestamp:     ts,
	}.publishing()

	assert.Equal(t, "application/json", p.ContentType)
	assert.Equal(t, amqp.Persistent, p.DeliveryMode)
	assert.Equal(t, "m-1", p.MessageId)
	assert.Equal(t, "c-1", p.CorrelationId)
	assert.Equal(t, ts, p.Timestamp)
	assert.Equal(t, "b-1", p.Headers["batchId"])
}

type fakeAcker struct {
	acked    []uint64
	nacked   []uint64
	requeued []uint64
}

func (f *fakeAcker) Ack(tag uint64, multiple bool) error {
	f.acked = append(f.acked, tag)
	return nil
}

func (f *fakeAcker) Nack(tag uint64, multiple, requeue bool) error {
	if requeue {
		f.requeued = append(f.requeued, tag)
	} else {
		f.nacked = append(f.nacked, tag)
	}
	return nil
}

func (f *fakeAcker) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func TestConsumer_Settle(t *testing.T) {
	acker := &fakeAcker{}
	c := &Consumer{logger: zap.NewNop()}

	c.settle(amqp.Delivery{Acknowledger: acker, DeliveryTag: 1}, Ack)
	c.settle(amqp.Delivery{Acknowledger: acker, DeliveryTag: 2}, Reject)
	c.settle(amqp.Delivery{Acknowledger: acker, DeliveryTag: 3}, Requeue)

	assert.Equal(t, []uint64{1}, acker.acked)
	assert.Equal(t, []uint64{2}, acker.nacked)
	assert.Equal(t, []uint64{3}, acker.requeued)
}

func TestConnection_ClosedRefusesChannel(t *testing.T) {
	conn := NewConnection(testConfig(), nil)
	conn.dial = func(string) (*amqp.Connection, error) {
		return nil, errors.New("dial refused")
	}

	_, err := conn.Channel()
	assert.ErrorContains(t, err, "dial refused")

	require.NoError(t, conn.Close())
	_, err = conn.Channel()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCheckReturned(t *testing.T) {
	ch := make(chan amqp.Return, 4)
	returns := newReturnTracker(ch)
	ch <- amqp.Return{MessageId: "m-2", ReplyCode: 312, ReplyText: "NO_ROUTE"}

	assert.NoError(t, checkReturned(returns, "m-1"))

	err := checkReturned(returns, "m-2")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnroutable)
	assert.Contains(t, err.Error(), "312 NO_ROUTE")

	assert.NoError(t, checkReturned(returns, "m-2"), "a return is claimed once")
	assert.NoError(t, checkReturned(nil, "m-3"))
}

func TestCheckReturned_KeepsOtherReturns(t *testing.T) {
	ch := make(chan amqp.Return, 4)
	returns := newReturnTracker(ch)
	ch <- amqp.Return{MessageId: "a"}
	ch <- amqp.Return{MessageId: "b"}

	assert.ErrorIs(t, checkReturned(returns, "a"), ErrUnroutable)
	assert.ErrorIs(t, checkReturned(returns, "b"), ErrUnroutable)

	close(ch)
	assert.NoError(t, checkReturned(returns, "c"))
}
