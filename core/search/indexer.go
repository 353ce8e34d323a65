package search

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	json "github.com/goccy/go-json"
)

// Document is one index entry.
type Document struct {
	ID   string
	Body any
}

// BulkStats summarizes one bulk apply.
type BulkStats struct {
	Indexed uint64
	Deleted uint64
	Failed  uint64
}

// NewClient creates an Elasticsearch client from cfg.
func NewClient(cfg Config) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create search client: %w", err)
	}
	return client, nil
}

// Indexer applies document changes to one index through the bulk API.
type Indexer struct {
	client  *elasticsearch.Client
	index   string
	timeout time.Duration
	refresh string
}

// NewIndexer creates an indexer for cfg.Index.
func NewIndexer(client *elasticsearch.Client, cfg Config) *Indexer {
	timeout := cfg.FlushTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Indexer{client: client, index: cfg.Index, timeout: timeout, refresh: cfg.Refresh}
}

// Index returns the index name.
func (ix *Indexer) Index() string {
	return ix.index
}

const priceMapping = `{
  "mappings": {
    "properties": {
      "company":       {"type": "keyword"},
      "productId":     {"type": "keyword"},
      "productName":   {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "price":         {"type": "scaled_float", "scaling_factor": 10000},
      "currency":      {"type": "keyword"},
      "stockQuantity": {"type": "long"},
      "category":      {"type": "keyword"},
      "manufacturer":  {"type": "keyword"},
      "supplierCode":  {"type": "keyword"},
      "description":   {"type": "text"},
      "updatedAt":     {"type": "date"}
    }
  }
}`

// EnsureIndex creates the index with the price mapping when it does not exist.
func (ix *Indexer) EnsureIndex(ctx context.Context) error {
	res, err := ix.client.Indices.Exists([]string{ix.index}, ix.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", ix.index, err)
	}
	if res.Body != nil {
		res.Body.Close()
	}
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = ix.client.Indices.Create(ix.index,
		ix.client.Indices.Create.WithContext(ctx),
		ix.client.Indices.Create.WithBody(strings.NewReader(priceMapping)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", ix.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("failed to create index %s: %s", ix.index, res.String())
	}
	return nil
}

// Bulk indexes upserts and deletes ids in a single bulk run and waits for it to flush.
// Any failed item makes the whole call fail.
func (ix *Indexer) Bulk(ctx context.Context, upserts []Document, deletes []string) (BulkStats, error) {
	if len(upserts) == 0 && len(deletes) == 0 {
		return BulkStats{}, nil
	}

	var (
		mu       sync.Mutex
		failures []string
		flushErr error
	)
	recordFailure := func(_ context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
		if item.Action == "delete" && res.Status == http.StatusNotFound && err == nil {
			// Already gone.
			return
		}
		mu.Lock()
		defer mu.Unlock()
		reason := res.Error.Reason
		if err != nil {
			reason = err.Error()
		}
		failures = append(failures, fmt.Sprintf("%s %s: %s", item.Action, item.DocumentID, reason))
	}

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:        ix.client,
		Index:         ix.index,
		NumWorkers:    1,
		FlushInterval: ix.timeout,
		Refresh:       ix.refresh,
		OnError: func(_ context.Context, err error) {
			mu.Lock()
			defer mu.Unlock()
			flushErr = err
		},
	})
	if err != nil {
		return BulkStats{}, fmt.Errorf("failed to create bulk indexer: %w", err)
	}

	for _, doc := range upserts {
		body, err := json.Marshal(doc.Body)
		if err != nil {
			_ = bi.Close(ctx)
			return BulkStats{}, fmt.Errorf("failed to encode document %s: %w", doc.ID, err)
		}
		if err := bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: doc.ID,
			Body:       bytes.NewReader(body),
			OnFailure:  recordFailure,
		}); err != nil {
			_ = bi.Close(ctx)
			return BulkStats{}, fmt.Errorf("failed to queue document %s: %w", doc.ID, err)
		}
	}
	for _, id := range deletes {
		if err := bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "delete",
			DocumentID: id,
			OnFailure:  recordFailure,
		}); err != nil {
			_ = bi.Close(ctx)
			return BulkStats{}, fmt.Errorf("failed to queue delete %s: %w", id, err)
		}
	}

	closeCtx, cancel := context.WithTimeout(ctx, ix.timeout)
	defer cancel()
	if err := bi.Close(closeCtx); err != nil {
		return BulkStats{}, fmt.Errorf("failed to flush bulk request: %w", err)
	}

	st := bi.Stats()
	stats := BulkStats{
		Indexed: st.NumIndexed,
		Deleted: st.NumDeleted,
		Failed:  st.NumFailed,
	}

	mu.Lock()
	defer mu.Unlock()
	if flushErr != nil {
		return stats, fmt.Errorf("bulk request failed: %w", flushErr)
	}
	if len(failures) > 0 {
		return stats, fmt.Errorf("bulk request had %d failed items: %s", len(failures), strings.Join(failures, "; "))
	}
	return stats, nil
}
