package aggregator

import (
	"sync"
	"time"

	"price-pipeline/feature/pricefile"
)

// Batch is the message set of one batch, complete or expired.
type Batch struct {
	ID              string
	Company         string
	FileProcessedAt pricefile.Timestamp
	Total           int
	ReceivedAt      time.Time
	Messages        []pricefile.PriceItemMessage
}

// Received is the number of distinct messages collected.
func (b Batch) Received() int {
	return len(b.Messages)
}

// Items returns the items in arrival order.
func (b Batch) Items() []pricefile.PriceItem {
	out := make([]pricefile.PriceItem, 0, len(b.Messages))
	for _, m := range b.Messages {
		if m.Item != nil {
			out = append(out, *m.Item)
		}
	}
	return out
}

// Context accumulates the messages of one live batch.
type Context struct {
	mu sync.Mutex

	id              string
	company         string
	fileProcessedAt pricefile.Timestamp
	total           int
	firstSeen       time.Time
	seen            map[string]struct{}
	messages        []pricefile.PriceItemMessage
	done            bool
}

func newContext(msg pricefile.PriceItemMessage, now time.Time) *Context {
	return &Context{
		id:              msg.BatchID,
		company:         msg.Company,
		fileProcessedAt: msg.FileProcessedAt,
		total:           msg.TotalItemsInBatch,
		firstSeen:       now,
		seen:            make(map[string]struct{}, msg.TotalItemsInBatch),
		messages:        make([]pricefile.PriceItemMessage, 0, msg.TotalItemsInBatch),
	}
}

// batch copies the collected state. Callers hold c.mu.
func (c *Context) batch() Batch {
	msgs := make([]pricefile.PriceItemMessage, len(c.messages))
	copy(msgs, c.messages)
	return Batch{
		ID:              c.id,
		Company:         c.company,
		FileProcessedAt: c.fileProcessedAt,
		Total:           c.total,
		ReceivedAt:      c.firstSeen,
		Messages:        msgs,
	}
}

// Status describes a live batch.
type Status struct {
	BatchID   string    `json:"batchId"`
	Company   string    `json:"company"`
	Received  int       `json:"received"`
	Total     int       `json:"total"`
	FirstSeen time.Time `json:"firstSeen"`
}

// Store holds live batch contexts. Implementations need no locking of their own;
// the aggregator serializes access.
type Store interface {
	Get(batchID string) (*Context, bool)
	Put(batchID string, c *Context)
	Delete(batchID string)
	Range(fn func(batchID string, c *Context))
	Len() int
}

// MemoryStore is a map-backed Store.
type MemoryStore struct {
	contexts map[string]*Context
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{contexts: make(map[string]*Context)}
}

func (s *MemoryStore) Get(batchID string) (*Context, bool) {
	c, ok := s.contexts[batchID]
	return c, ok
}

func (s *MemoryStore) Put(batchID string, c *Context) {
	s.contexts[batchID] = c
}

func (s *MemoryStore) Delete(batchID string) {
	delete(s.contexts, batchID)
}

func (s *MemoryStore) Range(fn func(batchID string, c *Context)) {
	for id, c := range s.contexts {
		fn(id, c)
	}
}

func (s *MemoryStore) Len() int {
	return len(s.contexts)
}
