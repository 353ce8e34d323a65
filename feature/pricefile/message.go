package pricefile

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// PriceItemMessage carries one item of a published batch. BatchID and
// TotalItemsInBatch are all a receiver needs to detect completion.
type PriceItemMessage struct {
	MessageID         string     `json:"messageId"`
	BatchID           string     `json:"batchId"`
	TotalItemsInBatch int        `json:"totalItemsInBatch"`
	ItemID            string     `json:"itemId"`
	Company           string     `json:"company"`
	FileProcessedAt   Timestamp  `json:"fileProcessedAt"`
	Item              *PriceItem `json:"item"`
}

// Check reports why a message cannot be aggregated, or nil.
func (m PriceItemMessage) Check() error {
	var problems []string
	if strings.TrimSpace(m.Company) == "" {
		problems = append(problems, "company is missing")
	}
	if strings.TrimSpace(m.BatchID) == "" {
		problems = append(problems, "batchId is missing")
	}
	if m.Item == nil {
		problems = append(problems, "item is missing")
	}
	if m.TotalItemsInBatch <= 0 {
		problems = append(problems, fmt.Sprintf("totalItemsInBatch must be positive, got %d", m.TotalItemsInBatch))
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Encode renders the wire form.
func (m PriceItemMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeMessage parses the wire form.
func DecodeMessage(body []byte) (PriceItemMessage, error) {
	var m PriceItemMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return PriceItemMessage{}, fmt.Errorf("failed to decode price item message: %w", err)
	}
	return m, nil
}
