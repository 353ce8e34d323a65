package snapshot

import (
	"time"

	"github.com/shopspring/decimal"
)

// CurrentStateRow is the latest known state of one product of one seller.
type CurrentStateRow struct {
	ID              uint            `gorm:"primaryKey" json:"-"`
	Company         string          `gorm:"size:128;not null;uniqueIndex:uniq_company_product,priority:1" json:"company"`
	ProductID       string          `gorm:"size:255;not null;uniqueIndex:uniq_company_product,priority:2" json:"productId"`
	ItemID          string          `gorm:"size:64" json:"itemId,omitempty"`
	ProductName     string          `gorm:"size:512" json:"productName"`
	Price           decimal.Decimal `gorm:"type:decimal(20,6)" json:"price"`
	Currency        string          `gorm:"size:8" json:"currency"`
	StockQuantity   int64           `json:"stockQuantity"`
	Category        string          `gorm:"size:255" json:"category,omitempty"`
	Manufacturer    string          `gorm:"size:255" json:"manufacturer,omitempty"`
	SupplierCode    string          `gorm:"size:128" json:"supplierCode,omitempty"`
	Description     string          `gorm:"type:text" json:"description,omitempty"`
	BatchID         string          `gorm:"size:64;index" json:"batchId"`
	FileProcessedAt time.Time       `json:"fileProcessedAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// TableName overrides the table name.
func (CurrentStateRow) TableName() string {
	return "current_state"
}

// HistoryStatus is the state of one reconciliation run.
type HistoryStatus string

const (
	HistoryProcessing HistoryStatus = "PROCESSING"
	HistorySuccess    HistoryStatus = "SUCCESS"
	HistoryFailed     HistoryStatus = "FAILED"
)

// ProcessingHistory records one reconciliation run per batch.
type ProcessingHistory struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	BatchID         string        `gorm:"size:64;not null;uniqueIndex" json:"batchId"`
	Company         string        `gorm:"size:128;index" json:"company"`
	FileProcessedAt time.Time     `json:"fileProcessedAt"`
	ReceivedAt      time.Time     `json:"receivedAt"`
	IndexedAt       *time.Time    `json:"indexedAt,omitempty"`
	TotalItems      int           `json:"totalItems"`
	ProcessedItems  int           `json:"processedItems"`
	Status          HistoryStatus `gorm:"size:16;not null;index" json:"status"`
	ErrorMessage    string        `gorm:"type:text" json:"errorMessage,omitempty"`
	Added           int           `json:"added"`
	Updated         int           `json:"updated"`
	Deleted         int           `json:"deleted"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// TableName overrides the table name.
func (ProcessingHistory) TableName() string {
	return "processing_history"
}

// Delta is the minimal change set between two snapshots.
type Delta struct {
	Added      []CurrentStateRow `json:"added"`
	Updated    []CurrentStateRow `json:"updated"`
	DeletedIDs []string          `json:"deletedIds"`
}

// IsEmpty reports whether the delta changes nothing.
func (d Delta) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.DeletedIDs) == 0
}
