package broker

import (
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// returnTracker collects basic.return frames for one channel. The broker sends a
// return before the ack of the same publish, so draining after the confirm sees it.
type returnTracker struct {
	ch <-chan amqp.Return

	mu       sync.Mutex
	returned map[string]amqp.Return
}

func newReturnTracker(ch <-chan amqp.Return) *returnTracker {
	return &returnTracker{ch: ch, returned: make(map[string]amqp.Return)}
}

func (r *returnTracker) drain() {
	for {
		select {
		case ret, ok := <-r.ch:
			if !ok {
				return
			}
			r.returned[ret.MessageId] = ret
		default:
			return
		}
	}
}

// take reports whether the message with id was returned as unroutable.
func (r *returnTracker) take(id string) (amqp.Return, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drain()
	ret, ok := r.returned[id]
	if ok {
		delete(r.returned, id)
	}
	return ret, ok
}
