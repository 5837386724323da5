package postgres

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"converter-service/internal/entity"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRepo(t *testing.T) (*PostgresRepo, pgxmock.PgxPoolIface) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	repo := NewPostgresRepo(mock, logger)
	return repo, mock
}

func sampleRecord(at time.Time) entity.ConversionRecord {
	return entity.NewConversionRecord(entity.ConversionRequest{
		Amount: decimal.NewFromInt(100),
		From:   "USD",
		To:     "BRL",
	}, decimal.RequireFromString("5.20"), at)
}

func historyQuery(t *testing.T, limit int) string {
	t.Helper()
	query, _, err := psql.
		Select(historyColumns...).
		From(historyTable).
		OrderBy("data_conversao DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	require.NoError(t, err)
	return query
}

func TestSaveConversion(t *testing.T) {
	ctx := context.Background()
	repo, mock := setupTestRepo(t)
	defer mock.Close()

	rec := sampleRecord(time.Date(2025, 8, 2, 10, 0, 0, 0, time.UTC))

	query, args, err := psql.Insert(historyTable).
		Columns("moeda_origem", "moeda_destino", "valor_origem", "valor_convertido", "taxa_cambio", "data_conversao").
		Values(rec.FromCurrency, rec.ToCurrency, rec.OriginalAmount, rec.ConvertedAmount, rec.Rate, rec.ConvertedAt).
		Suffix("RETURNING id").
		ToSql()
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs(args...).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, err := repo.SaveConversion(ctx, rec)
	assert.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveConversion_Error(t *testing.T) {
	ctx := context.Background()
	repo, mock := setupTestRepo(t)
	defer mock.Close()

	rec := sampleRecord(time.Now().UTC())

	expectedErr := errors.New("connection reset")
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO historico_moedas")).
		WillReturnError(expectedErr)

	id, err := repo.SaveConversion(ctx, rec)
	assert.Zero(t, id)
	assert.ErrorIs(t, err, expectedErr)
	assert.ErrorContains(t, err, "insert conversion")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetConversionHistory(t *testing.T) {
	ctx := context.Background()
	repo, mock := setupTestRepo(t)
	defer mock.Close()

	newest := time.Date(2025, 8, 2, 12, 0, 0, 0, time.UTC)
	older := newest.Add(-time.Hour)

	rows := pgxmock.NewRows(historyColumns).
		AddRow(int64(2), "EUR", "BRL", decimal.NewFromInt(10), decimal.RequireFromString("61.5"), decimal.RequireFromString("6.15"), newest).
		AddRow(int64(1), "USD", "BRL", decimal.NewFromInt(100), decimal.NewFromInt(520), decimal.RequireFromString("5.2"), older)

	mock.ExpectQuery(regexp.QuoteMeta(historyQuery(t, 5))).WillReturnRows(rows)

	records, err := repo.GetConversionHistory(ctx, 5)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, int64(2), records[0].ID)
	assert.Equal(t, "EUR", records[0].FromCurrency)
	assert.True(t, records[0].ConvertedAmount.Equal(decimal.RequireFromString("61.5")))
	assert.Equal(t, newest, records[0].ConvertedAt)
	assert.Equal(t, int64(1), records[1].ID)
	assert.True(t, records[1].Rate.Equal(decimal.RequireFromString("5.2")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetConversionHistory_Empty(t *testing.T) {
	ctx := context.Background()
	repo, mock := setupTestRepo(t)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(historyQuery(t, 10))).
		WillReturnRows(pgxmock.NewRows(historyColumns))

	records, err := repo.GetConversionHistory(ctx, 10)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetConversionHistory_NonPositiveLimit(t *testing.T) {
	ctx := context.Background()
	repo, mock := setupTestRepo(t)
	defer mock.Close()

	// No expectations since early return
	records, err := repo.GetConversionHistory(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetConversionHistory_QueryError(t *testing.T) {
	ctx := context.Background()
	repo, mock := setupTestRepo(t)
	defer mock.Close()

	expectedErr := errors.New("database error")
	mock.ExpectQuery(regexp.QuoteMeta(historyQuery(t, 10))).WillReturnError(expectedErr)

	records, err := repo.GetConversionHistory(ctx, 10)
	assert.Nil(t, records)
	assert.ErrorContains(t, err, expectedErr.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetConversionHistory_RowError(t *testing.T) {
	ctx := context.Background()
	repo, mock := setupTestRepo(t)
	defer mock.Close()

	rows := pgxmock.NewRows(historyColumns).
		AddRow(int64(1), "USD", "BRL", decimal.NewFromInt(100), decimal.NewFromInt(520), decimal.RequireFromString("5.2"), time.Now()).
		RowError(0, errors.New("row broken"))

	mock.ExpectQuery(regexp.QuoteMeta(historyQuery(t, 3))).WillReturnRows(rows)

	_, err := repo.GetConversionHistory(ctx, 3)
	assert.ErrorContains(t, err, "row broken")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func snapshotInsert(t *testing.T, s entity.RateSnapshot) (string, []any) {
	t.Helper()
	query, args, err := psql.Insert(snapshotsTable).
		Columns("moeda_origem", "moeda_destino", "taxa_cambio", "provider", "fetched_at").
		Values(s.From, s.To, s.Rate, s.Provider, s.FetchedAt).
		ToSql()
	require.NoError(t, err)
	return query, args
}

func sampleSnapshots() []entity.RateSnapshot {
	at := time.Date(2025, 8, 2, 13, 0, 0, 0, time.UTC)
	return []entity.RateSnapshot{
		{From: "USD", To: "BRL", Rate: decimal.RequireFromString("5.2"), Provider: "exchangerate", FetchedAt: at},
		{From: "EUR", To: "BRL", Rate: decimal.RequireFromString("6.15"), Provider: "cbr", FetchedAt: at},
	}
}

func TestStoreRateSnapshots(t *testing.T) {
	ctx := context.Background()
	repo, mock := setupTestRepo(t)
	defer mock.Close()

	snapshots := sampleSnapshots()

	mock.ExpectBegin()
	eb := mock.ExpectBatch()
	for _, s := range snapshots {
		query, args := snapshotInsert(t, s)
		eb.ExpectExec(regexp.QuoteMeta(query)).
			WithArgs(args...).
			WillReturnResult(pgconn.NewCommandTag("INSERT 0 1"))
	}
	mock.ExpectCommit()

	err := repo.StoreRateSnapshots(ctx, snapshots)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreRateSnapshots_ErrorInBatch(t *testing.T) {
	ctx := context.Background()
	repo, mock := setupTestRepo(t)
	defer mock.Close()

	snapshots := sampleSnapshots()

	mock.ExpectBegin()
	eb := mock.ExpectBatch()

	query1, args1 := snapshotInsert(t, snapshots[0])
	eb.ExpectExec(regexp.QuoteMeta(query1)).
		WithArgs(args1...).
		WillReturnResult(pgconn.NewCommandTag("INSERT 0 1"))

	expectedErr := errors.New("insert error")
	query2, args2 := snapshotInsert(t, snapshots[1])
	eb.ExpectExec(regexp.QuoteMeta(query2)).
		WithArgs(args2...).
		WillReturnError(expectedErr)

	mock.ExpectRollback()

	err := repo.StoreRateSnapshots(ctx, snapshots)
	assert.ErrorContains(t, err, expectedErr.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreRateSnapshots_BeginError(t *testing.T) {
	ctx := context.Background()
	repo, mock := setupTestRepo(t)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	err := repo.StoreRateSnapshots(ctx, sampleSnapshots())
	assert.ErrorContains(t, err, "begin tx")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreRateSnapshots_Empty(t *testing.T) {
	ctx := context.Background()
	repo, mock := setupTestRepo(t)
	defer mock.Close()

	err := repo.StoreRateSnapshots(ctx, nil)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPing(t *testing.T) {
	ctx := context.Background()
	repo, mock := setupTestRepo(t)
	defer mock.Close()

	mock.ExpectPing()
	assert.NoError(t, repo.Ping(ctx))

	mock.ExpectPing().WillReturnError(errors.New("down"))
	assert.ErrorContains(t, repo.Ping(ctx), "down")

	assert.NoError(t, mock.ExpectationsWereMet())
}
