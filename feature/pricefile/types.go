package pricefile

import (
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Metadata is the header object of a price file.
type Metadata struct {
	Company           string    `json:"company"`
	FileProcessedAt   Timestamp `json:"fileProcessedAt"`
	FileFormatVersion string    `json:"fileFormatVersion,omitempty"`
	TotalItems        *int      `json:"totalItems,omitempty"`
	BatchID           string    `json:"batchId,omitempty"`
}

// PriceItem is one product line of a price file.
type PriceItem struct {
	ItemID        string          `json:"itemId,omitempty"`
	ProductID     string          `json:"productId"`
	ProductName   string          `json:"productName"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	StockQuantity int64           `json:"stockQuantity"`
	Category      string          `json:"category,omitempty"`
	Manufacturer  string          `json:"manufacturer,omitempty"`
	SupplierCode  string          `json:"supplierCode,omitempty"`
	Description   string          `json:"description,omitempty"`
}

// Validate returns the first field rule the item breaks, or nil.
func (i PriceItem) Validate() error {
	switch {
	case strings.TrimSpace(i.ProductID) == "":
		return fmt.Errorf("productId is required")
	case strings.TrimSpace(i.ProductName) == "":
		return fmt.Errorf("productName is required")
	case i.Price.IsNegative():
		return fmt.Errorf("price must be non-negative, got %s", i.Price.String())
	case i.StockQuantity < 0:
		return fmt.Errorf("stockQuantity must be non-negative, got %d", i.StockQuantity)
	}
	return nil
}

// IsValid reports whether the item passes field validation.
func (i PriceItem) IsValid() bool {
	return i.Validate() == nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp is an ISO-8601 instant. Values without a zone are read as UTC.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

// ParseTimestamp parses the accepted ISO-8601 forms.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return Timestamp{Time: t.UTC()}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("invalid timestamp %q", s)
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
