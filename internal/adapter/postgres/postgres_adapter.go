package postgres

import (
	"context"
	"fmt"

	"converter-service/internal/entity"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const (
	historyTable   = "historico_moedas"
	snapshotsTable = "rate_snapshots"
)

var (
	psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	historyColumns = []string{
		"id", "moeda_origem", "moeda_destino", "valor_origem",
		"valor_convertido", "taxa_cambio", "data_conversao",
	}
)

type PostgresRepo struct {
	pool   Pool
	logger *logrus.Logger
}

func NewPostgresRepo(pool Pool, logger *logrus.Logger) *PostgresRepo {
	return &PostgresRepo{
		pool:   pool,
		logger: logger,
	}
}

func (r *PostgresRepo) SaveConversion(ctx context.Context, rec entity.ConversionRecord) (int64, error) {
	log := r.logger.WithFields(logrus.Fields{
		"from": rec.FromCurrency,
		"to":   rec.ToCurrency,
	})

	query, args, err := psql.Insert(historyTable).
		Columns("moeda_origem", "moeda_destino", "valor_origem", "valor_convertido", "taxa_cambio", "data_conversao").
		Values(rec.FromCurrency, rec.ToCurrency, rec.OriginalAmount, rec.ConvertedAmount, rec.Rate, rec.ConvertedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		log.WithError(err).Error("Failed to build insert query")
		return 0, fmt.Errorf("build insert: %w", err)
	}

	var id int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		log.WithError(err).Error("Failed to insert conversion record")
		return 0, fmt.Errorf("insert conversion: %w", err)
	}

	log.WithField("id", id).Debug("Stored conversion record")
	return id, nil
}

func (r *PostgresRepo) GetConversionHistory(ctx context.Context, limit int) ([]entity.ConversionRecord, error) {
	if limit <= 0 {
		return []entity.ConversionRecord{}, nil
	}

	query, args, err := psql.
		Select(historyColumns...).
		From(historyTable).
		OrderBy("data_conversao DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		r.logger.WithError(err).Error("Failed to build history query")
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.WithError(err).Error("Failed to query conversion history")
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	records := make([]entity.ConversionRecord, 0, limit)
	for rows.Next() {
		var rec entity.ConversionRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.FromCurrency,
			&rec.ToCurrency,
			&rec.OriginalAmount,
			&rec.ConvertedAmount,
			&rec.Rate,
			&rec.ConvertedAt,
		); err != nil {
			r.logger.WithError(err).Error("Failed to scan conversion record")
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		r.logger.WithError(err).Error("Failed to iterate conversion history")
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	r.logger.WithField("count", len(records)).Debug("Retrieved conversion history")
	return records, nil
}

func (r *PostgresRepo) StoreRateSnapshots(ctx context.Context, snapshots []entity.RateSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	r.logger.Infof("Start storing %d rate snapshots", len(snapshots))

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.WithError(err).Error("Failed to begin transaction")
		return fmt.Errorf("begin tx: %w", err)
	}

	batch := &pgx.Batch{}
	for _, s := range snapshots {
		query, args, err := psql.Insert(snapshotsTable).
			Columns("moeda_origem", "moeda_destino", "taxa_cambio", "provider", "fetched_at").
			Values(s.From, s.To, s.Rate, s.Provider, s.FetchedAt).
			ToSql()
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				r.logger.WithError(rbErr).Error("Failed to rollback tx")
			}
			return fmt.Errorf("build insert for %s/%s: %w", s.From, s.To, err)
		}
		batch.Queue(query, args...)
	}

	br := tx.SendBatch(ctx, batch)

	var batchErrs error
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			batchErrs = multierr.Append(batchErrs, err)
			r.logger.WithError(err).Errorf("Failed batch exec for snapshot %d", i)
		}
	}

	if err := br.Close(); err != nil {
		batchErrs = multierr.Append(batchErrs, err)
		r.logger.WithError(err).Error("Failed to close batch results")
	}

	if batchErrs != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			r.logger.WithError(rbErr).Error("Failed to rollback tx after batch errors")
		}
		return fmt.Errorf("batch exec/close errors: %w", batchErrs)
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.WithError(err).Error("Failed to commit tx")
		return fmt.Errorf("commit tx: %w", err)
	}

	r.logger.Info("Successfully stored rate snapshots")
	return nil
}

func (r *PostgresRepo) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}
