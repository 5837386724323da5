package service

import (
	"context"

	"converter-service/internal/entity"
)

type CurrencyConverter interface {
	GetExchangeRate(ctx context.Context, from, to string) (entity.ExchangeRate, error)
	ConvertCurrency(ctx context.Context, req entity.ConversionRequest) (*entity.Conversion, error)
	GetConversionHistory(ctx context.Context, limit int) ([]entity.ConversionRecord, error)
	ConvertAsync(ctx context.Context, req entity.ConversionRequest) *PendingConversion
	RecordSnapshots(ctx context.Context, pairs []entity.CurrencyPair) (int, error)
	StoreStatus(ctx context.Context) error
}

var _ CurrencyConverter = (*ConverterService)(nil)
