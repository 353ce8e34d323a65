package utils

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
)

func TestToInt64(t *testing.T) {
	tests := []struct {
		in   any
		want int64
		ok   bool
	}{
		{nil, 0, false},
		{42, 42, true},
		{int64(1 << 40), 1 << 40, true},
		{float64(1024), 1024, true},
		{json.Number("2048"), 2048, true},
		{" 77 ", 77, true},
		{[]byte("5"), 5, true},
		{"abc", 0, false},
		{struct{}{}, 0, false},
	}
	for _, tt := range tests {
		got, ok := ToInt64(tt.in)
		assert.Equal(t, tt.ok, ok, "input %v", tt.in)
		assert.Equal(t, tt.want, got, "input %v", tt.in)
	}
}

func TestToString(t *testing.T) {
	assert.Equal(t, "", ToString(nil))
	assert.Equal(t, "x", ToString([]byte("x")))
	assert.Equal(t, "12", ToString(12))
}

func TestToBool(t *testing.T) {
	assert.True(t, ToBool(true))
	assert.True(t, ToBool("TRUE"))
	assert.True(t, ToBool("yes"))
	assert.True(t, ToBool(1))
	assert.True(t, ToBool([]byte("1")))
	assert.False(t, ToBool(0))
	assert.False(t, ToBool("no"))
	assert.False(t, ToBool(nil))
}

func TestNormalizeCompany(t *testing.T) {
	assert.Equal(t, "acme", NormalizeCompany("  ACME "))
}
