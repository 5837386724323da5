package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate is the number of units of To per one unit of From, valid only
// at FetchedAt.
type ExchangeRate struct {
	From      string          `json:"from"`
	To        string          `json:"to"`
	Rate      decimal.Decimal `json:"rate"`
	Provider  string          `json:"provider"`
	FetchedAt time.Time       `json:"fetched_at"`
}

type ConversionRequest struct {
	Amount decimal.Decimal
	From   string
	To     string
}

// ConversionRecord is one row of historico_moedas. Records are never updated.
type ConversionRecord struct {
	ID              int64           `db:"id" json:"id,omitempty"`
	FromCurrency    string          `db:"moeda_origem" json:"from_currency"`
	ToCurrency      string          `db:"moeda_destino" json:"to_currency"`
	OriginalAmount  decimal.Decimal `db:"valor_origem" json:"original_amount"`
	ConvertedAmount decimal.Decimal `db:"valor_convertido" json:"converted_amount"`
	Rate            decimal.Decimal `db:"taxa_cambio" json:"rate"`
	ConvertedAt     time.Time       `db:"data_conversao" json:"timestamp"`
}

// NewConversionRecord computes the converted amount as amount × rate.
func NewConversionRecord(req ConversionRequest, rate decimal.Decimal, at time.Time) ConversionRecord {
	return ConversionRecord{
		FromCurrency:    req.From,
		ToCurrency:      req.To,
		OriginalAmount:  req.Amount,
		ConvertedAmount: req.Amount.Mul(rate),
		Rate:            rate,
		ConvertedAt:     at,
	}
}

// Conversion is the outcome of a conversion attempt that obtained a rate.
// Persisted is false when the record could not be written to the store.
type Conversion struct {
	Record    ConversionRecord
	Provider  string
	Converted bool
	Persisted bool
}

type RateSnapshot struct {
	ID        int64           `db:"id" json:"id,omitempty"`
	From      string          `db:"moeda_origem" json:"from"`
	To        string          `db:"moeda_destino" json:"to"`
	Rate      decimal.Decimal `db:"taxa_cambio" json:"rate"`
	Provider  string          `db:"provider" json:"provider"`
	FetchedAt time.Time       `db:"fetched_at" json:"fetched_at"`
}

func SnapshotFromRate(rate ExchangeRate) RateSnapshot {
	return RateSnapshot{
		From:      rate.From,
		To:        rate.To,
		Rate:      rate.Rate,
		Provider:  rate.Provider,
		FetchedAt: rate.FetchedAt,
	}
}

type CurrencyPair struct {
	From string
	To   string
}

func (p CurrencyPair) String() string {
	return p.From + "/" + p.To
}
