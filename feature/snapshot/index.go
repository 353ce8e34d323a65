package snapshot

import (
	"context"
	"time"

	"price-pipeline/core/search"
)

// IndexApplier pushes a delta to the search index.
type IndexApplier interface {
	Apply(ctx context.Context, company string, d Delta) error
}

// NopApplier discards deltas. It is used when search is disabled.
type NopApplier struct{}

// Apply implements IndexApplier.
func (NopApplier) Apply(context.Context, string, Delta) error { return nil }

// SearchApplier applies deltas with one bulk request.
type SearchApplier struct {
	indexer *search.Indexer
	now     func() time.Time
}

// NewSearchApplier creates an applier over indexer.
func NewSearchApplier(indexer *search.Indexer) *SearchApplier {
	return &SearchApplier{indexer: indexer, now: time.Now}
}

// Apply indexes added and updated rows and deletes removed ids.
func (a *SearchApplier) Apply(ctx context.Context, company string, d Delta) error {
	if d.IsEmpty() {
		return nil
	}
	upserts, deletes := documents(company, d, a.now().UTC())
	_, err := a.indexer.Bulk(ctx, upserts, deletes)
	return err
}

// DocumentID is the index id of a product, "<company>:<productId>".
func DocumentID(company, productID string) string {
	return company + ":" + productID
}

type document struct {
	Company       string    `json:"company"`
	ProductID     string    `json:"productId"`
	ProductName   string    `json:"productName"`
	Price         string    `json:"price"`
	Currency      string    `json:"currency"`
	StockQuantity int64     `json:"stockQuantity"`
	Category      string    `json:"category,omitempty"`
	Manufacturer  string    `json:"manufacturer,omitempty"`
	SupplierCode  string    `json:"supplierCode,omitempty"`
	Description   string    `json:"description,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func documents(company string, d Delta, now time.Time) ([]search.Document, []string) {
	upserts := make([]search.Document, 0, len(d.Added)+len(d.Updated))
	for _, rows := range [][]CurrentStateRow{d.Added, d.Updated} {
		for _, r := range rows {
			upserts = append(upserts, search.Document{
				ID: DocumentID(company, r.ProductID),
				Body: document{
					Company:       company,
					ProductID:     r.ProductID,
					ProductName:   r.ProductName,
					Price:         r.Price.String(),
					Currency:      r.Currency,
					StockQuantity: r.StockQuantity,
					Category:      r.Category,
					Manufacturer:  r.Manufacturer,
					SupplierCode:  r.SupplierCode,
					Description:   r.Description,
					UpdatedAt:     now,
				},
			})
		}
	}

	deletes := make([]string, 0, len(d.DeletedIDs))
	for _, id := range d.DeletedIDs {
		deletes = append(deletes, DocumentID(company, id))
	}
	return upserts, deletes
}
