package ledger

import "time"

// Status is the terminal outcome of one processing attempt.
type Status string

const (
	StatusSuccess   Status = "SUCCESS"
	StatusPartial   Status = "PARTIAL"
	StatusFailed    Status = "FAILED"
	StatusDuplicate Status = "DUPLICATE"
)

// Statuses lists every status in reporting order.
var Statuses = []Status{StatusSuccess, StatusPartial, StatusFailed, StatusDuplicate}

// ProcessedFileRecord is one ledger row.
type ProcessedFileRecord struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	FilePath         string    `gorm:"size:512;not null;uniqueIndex:uniq_path_hash_attempt,priority:1" json:"filePath"`
	FileHash         string    `gorm:"size:64;not null;uniqueIndex:uniq_path_hash_attempt,priority:2" json:"fileHash"`
	Attempt          int       `gorm:"not null;uniqueIndex:uniq_path_hash_attempt,priority:3" json:"attempt"`
	Company          string    `gorm:"size:128;index:idx_company_processed,priority:1" json:"company"`
	ProcessedAt      time.Time `gorm:"not null;index;index:idx_company_processed,priority:2" json:"processedAt"`
	Status           Status    `gorm:"size:16;not null;index" json:"status"`
	RecordsProcessed int       `json:"recordsProcessed"`
	RecordsFailed    int       `json:"recordsFailed"`
	ErrorMessage     string    `gorm:"type:text" json:"errorMessage,omitempty"`
	BatchID          string    `gorm:"size:64;index" json:"batchId,omitempty"`
	CorrelationID    string    `gorm:"size:64;index" json:"correlationId,omitempty"`
}

// TableName overrides the table name.
func (ProcessedFileRecord) TableName() string {
	return "processed_files"
}

// Stats summarizes ledger rows for a period.
type Stats struct {
	Company          string           `json:"company,omitempty"`
	From             *time.Time       `json:"from,omitempty"`
	To               *time.Time       `json:"to,omitempty"`
	Files            int64            `json:"files"`
	ByStatus         map[Status]int64 `json:"byStatus"`
	RecordsProcessed int64            `json:"recordsProcessed"`
	RecordsFailed    int64            `json:"recordsFailed"`
}

// Filter narrows range queries. Zero values are ignored.
type Filter struct {
	Company string
	From    time.Time
	To      time.Time
	Limit   int
}
