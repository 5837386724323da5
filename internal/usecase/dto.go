package usecase

import (
	"encoding/json"
	"time"

	"converter-service/internal/entity"

	"github.com/shopspring/decimal"
)

const (
	amountPlaces = 2
	ratePlaces   = 6
)

type ConversionResponse struct {
	ID              int64       `json:"id,omitempty"`
	FromCurrency    string      `json:"from_currency"`
	ToCurrency      string      `json:"to_currency"`
	OriginalAmount  json.Number `json:"original_amount"`
	ConvertedAmount json.Number `json:"converted_amount"`
	Rate            json.Number `json:"rate"`
	Provider        string      `json:"provider,omitempty"`
	Timestamp       string      `json:"timestamp"`
	Persisted       bool        `json:"persisted"`
}

type RateResponse struct {
	From      string      `json:"from"`
	To        string      `json:"to"`
	Rate      json.Number `json:"rate"`
	Provider  string      `json:"provider"`
	FetchedAt string      `json:"fetched_at"`
}

type HistoryResponse struct {
	History []ConversionResponse `json:"history"`
}

type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

type JobResponse struct {
	JobID  string              `json:"job_id"`
	Status JobStatus           `json:"status"`
	Result *ConversionResponse `json:"result,omitempty"`
	Error  string              `json:"error,omitempty"`
}

type SnapshotResponse struct {
	Requested int    `json:"requested"`
	Stored    int    `json:"stored"`
	Error     string `json:"error,omitempty"`
}

// fixed renders d rounded half away from zero as a bare JSON number.
func fixed(d decimal.Decimal, places int32) json.Number {
	return json.Number(d.StringFixed(places))
}

func toConversionResponse(rec entity.ConversionRecord) ConversionResponse {
	return ConversionResponse{
		ID:              rec.ID,
		FromCurrency:    rec.FromCurrency,
		ToCurrency:      rec.ToCurrency,
		OriginalAmount:  fixed(rec.OriginalAmount, amountPlaces),
		ConvertedAmount: fixed(rec.ConvertedAmount, amountPlaces),
		Rate:            fixed(rec.Rate, ratePlaces),
		Timestamp:       rec.ConvertedAt.UTC().Format(time.RFC3339),
	}
}

func fromConversion(conv *entity.Conversion) *ConversionResponse {
	resp := toConversionResponse(conv.Record)
	resp.Provider = conv.Provider
	resp.Persisted = conv.Persisted
	return &resp
}

func fromRate(rate entity.ExchangeRate) *RateResponse {
	return &RateResponse{
		From:      rate.From,
		To:        rate.To,
		Rate:      fixed(rate.Rate, ratePlaces),
		Provider:  rate.Provider,
		FetchedAt: rate.FetchedAt.UTC().Format(time.RFC3339),
	}
}

func fromHistory(records []entity.ConversionRecord) *HistoryResponse {
	history := make([]ConversionResponse, 0, len(records))
	for _, rec := range records {
		resp := toConversionResponse(rec)
		resp.Persisted = true
		history = append(history, resp)
	}
	return &HistoryResponse{History: history}
}
