package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConversionRecord_ExactProduct(t *testing.T) {
	at := time.Date(2025, 8, 2, 10, 0, 0, 0, time.UTC)
	req := ConversionRequest{
		Amount: decimal.NewFromInt(100),
		From:   "USD",
		To:     "BRL",
	}

	rec := NewConversionRecord(req, decimal.RequireFromString("5.20"), at)

	assert.True(t, rec.ConvertedAmount.Equal(decimal.RequireFromString("520")))
	assert.Equal(t, "520.00", rec.ConvertedAmount.StringFixed(2))
	assert.Equal(t, "USD", rec.FromCurrency)
	assert.Equal(t, "BRL", rec.ToCurrency)
	assert.Equal(t, at, rec.ConvertedAt)
	assert.Zero(t, rec.ID)
}

func TestNewConversionRecord_FractionalAmounts(t *testing.T) {
	req := ConversionRequest{Amount: decimal.RequireFromString("0.1"), From: "EUR", To: "USD"}

	rec := NewConversionRecord(req, decimal.RequireFromString("0.3"), time.Now())

	// 0.1 * 0.3 in float64 is 0.030000000000000002
	assert.Equal(t, "0.03", rec.ConvertedAmount.String())
}

func TestConversionRecord_MarshalJSON(t *testing.T) {
	at := time.Date(2025, 8, 2, 0, 0, 0, 0, time.UTC)
	rec := ConversionRecord{
		ID:              7,
		FromCurrency:    "USD",
		ToCurrency:      "BRL",
		OriginalAmount:  decimal.NewFromInt(100),
		ConvertedAmount: decimal.NewFromInt(520),
		Rate:            decimal.RequireFromString("5.2"),
		ConvertedAt:     at,
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	expected := `{"id":7,"from_currency":"USD","to_currency":"BRL","original_amount":"100","converted_amount":"520","rate":"5.2","timestamp":"2025-08-02T00:00:00Z"}`
	assert.JSONEq(t, expected, string(data))
}

func TestSnapshotFromRate(t *testing.T) {
	at := time.Now().UTC()
	rate := ExchangeRate{From: "USD", To: "BRL", Rate: decimal.RequireFromString("5.2"), Provider: "exchangerate", FetchedAt: at}

	snap := SnapshotFromRate(rate)

	assert.Equal(t, "USD", snap.From)
	assert.Equal(t, "BRL", snap.To)
	assert.True(t, snap.Rate.Equal(rate.Rate))
	assert.Equal(t, "exchangerate", snap.Provider)
	assert.Equal(t, at, snap.FetchedAt)
}
