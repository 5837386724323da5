package postgres

import (
	"context"

	"converter-service/internal/entity"

	"github.com/jackc/pgx/v5"
)

type ConversionRepository interface {
	SaveConversion(ctx context.Context, record entity.ConversionRecord) (int64, error)
	GetConversionHistory(ctx context.Context, limit int) ([]entity.ConversionRecord, error)
	StoreRateSnapshots(ctx context.Context, snapshots []entity.RateSnapshot) error
	Ping(ctx context.Context) error
}

type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}
