package pricefile

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceItemMessage_WireFormat(t *testing.T) {
	msg := PriceItemMessage{
		MessageID:         "m-1",
		BatchID:           "b-1",
		TotalItemsInBatch: 2,
		ItemID:            "i-1",
		Company:           "acme",
		FileProcessedAt:   NewTimestamp(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)),
		Item: &PriceItem{
			ProductID:   "P1",
			ProductName: "Widget",
			Price:       decimal.RequireFromString("10.10"),
			Currency:    "EUR",
		},
	}

	body, err := msg.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(body), `"totalItemsInBatch":2`)
	assert.Contains(t, string(body), `"fileProcessedAt":"2024-03-01T10:00:00Z"`)
	assert.Contains(t, string(body), `"price":"10.1"`)

	back, err := DecodeMessage(body)
	require.NoError(t, err)
	assert.NoError(t, back.Check())
	assert.True(t, back.Item.Price.Equal(decimal.RequireFromString("10.10")))
	assert.True(t, back.FileProcessedAt.Equal(msg.FileProcessedAt.Time))
}

func TestPriceItemMessage_Check(t *testing.T) {
	err := PriceItemMessage{TotalItemsInBatch: 0}.Check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "company is missing")
	assert.Contains(t, err.Error(), "batchId is missing")
	assert.Contains(t, err.Error(), "item is missing")
	assert.Contains(t, err.Error(), "totalItemsInBatch must be positive, got 0")

	_, err = DecodeMessage([]byte(`{"item":`))
	assert.Error(t, err)
}
