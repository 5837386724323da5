package usecase

import (
	"context"

	"github.com/shopspring/decimal"
)

type ConverterUsecase interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (*ConversionResponse, error)
	GetRate(ctx context.Context, from, to string) (*RateResponse, error)
	GetHistory(ctx context.Context, limit int) (*HistoryResponse, error)
	StartConversion(ctx context.Context, amount decimal.Decimal, from, to string) (*JobResponse, error)
	ConversionStatus(id string) (*JobResponse, error)
	RefreshSnapshots(ctx context.Context) (*SnapshotResponse, error)
	Health(ctx context.Context) error
}
