package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"converter-service/internal/entity"
	"converter-service/internal/service"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/currency"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrJobNotFound  = errors.New("conversion job not found")
)

// Accepted amounts have at most maxAmountDigits integer digits and
// amountScale decimal places.
const (
	maxAmountDigits = 16
	amountScale     = 8
)

var maxAmount = decimal.New(1, maxAmountDigits)

type Options struct {
	JobTTL        time.Duration
	SnapshotPairs []entity.CurrencyPair
}

type CurrencyUsecase struct {
	converter service.CurrencyConverter
	pairs     []entity.CurrencyPair
	jobs      *jobRegistry
	logger    *logrus.Logger
}

func NewCurrencyUsecase(converter service.CurrencyConverter, opts Options, logger *logrus.Logger) *CurrencyUsecase {
	return &CurrencyUsecase{
		converter: converter,
		pairs:     opts.SnapshotPairs,
		jobs:      newJobRegistry(opts.JobTTL),
		logger:    logger,
	}
}

var _ ConverterUsecase = (*CurrencyUsecase)(nil)

// parseCode accepts any recognised ISO 4217 code in any case and returns it
// upper-cased. XXX ("no currency") is rejected.
func parseCode(code string) (string, error) {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil || unit == (currency.Unit{}) {
		return "", fmt.Errorf("%w: unknown currency code %q", ErrInvalidInput, code)
	}
	return unit.String(), nil
}

func (uc *CurrencyUsecase) buildRequest(amount decimal.Decimal, from, to string) (entity.ConversionRequest, error) {
	if !amount.IsPositive() {
		return entity.ConversionRequest{}, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidInput)
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return entity.ConversionRequest{}, fmt.Errorf("%w: amount must have at most %d integer digits", ErrInvalidInput, maxAmountDigits)
	}
	if !amount.Equal(amount.Truncate(amountScale)) {
		return entity.ConversionRequest{}, fmt.Errorf("%w: amount must have at most %d decimal places", ErrInvalidInput, amountScale)
	}

	fromCode, err := parseCode(from)
	if err != nil {
		return entity.ConversionRequest{}, err
	}
	toCode, err := parseCode(to)
	if err != nil {
		return entity.ConversionRequest{}, err
	}

	return entity.ConversionRequest{Amount: amount, From: fromCode, To: toCode}, nil
}

func (uc *CurrencyUsecase) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (*ConversionResponse, error) {
	req, err := uc.buildRequest(amount, from, to)
	if err != nil {
		uc.logger.WithError(err).Warn("Rejected conversion request")
		return nil, err
	}

	conv, err := uc.converter.ConvertCurrency(ctx, req)
	if err != nil {
		uc.logger.WithError(err).Errorf("Failed to convert %s %s to %s", req.Amount, req.From, req.To)
		return nil, err
	}

	return fromConversion(conv), nil
}

func (uc *CurrencyUsecase) GetRate(ctx context.Context, from, to string) (*RateResponse, error) {
	fromCode, err := parseCode(from)
	if err != nil {
		return nil, err
	}
	toCode, err := parseCode(to)
	if err != nil {
		return nil, err
	}

	rate, err := uc.converter.GetExchangeRate(ctx, fromCode, toCode)
	if err != nil {
		uc.logger.WithError(err).Errorf("Failed to get rate %s/%s", fromCode, toCode)
		return nil, err
	}
	return fromRate(rate), nil
}

// GetHistory always returns a usable response; on a store failure the
// history is empty and the error is returned alongside it.
func (uc *CurrencyUsecase) GetHistory(ctx context.Context, limit int) (*HistoryResponse, error) {
	records, err := uc.converter.GetConversionHistory(ctx, limit)
	if err != nil {
		uc.logger.WithError(err).Warn("Conversion history unavailable")
		return &HistoryResponse{History: []ConversionResponse{}}, err
	}
	return fromHistory(records), nil
}

// StartConversion validates the request and runs it in the background. The
// job is detached from ctx cancellation so it outlives the HTTP request.
func (uc *CurrencyUsecase) StartConversion(ctx context.Context, amount decimal.Decimal, from, to string) (*JobResponse, error) {
	req, err := uc.buildRequest(amount, from, to)
	if err != nil {
		uc.logger.WithError(err).Warn("Rejected async conversion request")
		return nil, err
	}

	pending := uc.converter.ConvertAsync(context.WithoutCancel(ctx), req)
	id := uc.jobs.add(pending)

	uc.logger.WithFields(logrus.Fields{"job_id": id, "from": req.From, "to": req.To}).Info("Started async conversion")
	return &JobResponse{JobID: id, Status: JobPending}, nil
}

func (uc *CurrencyUsecase) ConversionStatus(id string) (*JobResponse, error) {
	j, ok := uc.jobs.get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	conv, finished, err := j.pending.Result()
	if !finished {
		return &JobResponse{JobID: id, Status: JobPending}, nil
	}

	uc.jobs.remove(id)

	if err != nil {
		msg := err.Error()
		if errors.Is(err, service.ErrRateUnavailable) {
			msg = service.RateUnavailableMessage
		}
		return &JobResponse{JobID: id, Status: JobFailed, Error: msg}, nil
	}
	return &JobResponse{JobID: id, Status: JobDone, Result: fromConversion(conv)}, nil
}

// RefreshSnapshots records the configured pairs. A partial failure is
// reported in the response; only a run that stored nothing is an error.
func (uc *CurrencyUsecase) RefreshSnapshots(ctx context.Context) (*SnapshotResponse, error) {
	uc.logger.Infof("Recording rate snapshots for %d pairs...", len(uc.pairs))

	resp := &SnapshotResponse{Requested: len(uc.pairs)}
	if len(uc.pairs) == 0 {
		return resp, nil
	}

	stored, err := uc.converter.RecordSnapshots(ctx, uc.pairs)
	resp.Stored = stored
	if err != nil {
		if stored == 0 {
			return resp, err
		}
		uc.logger.WithError(err).Warnf("Stored %d of %d snapshots", stored, len(uc.pairs))
		resp.Error = err.Error()
	}
	return resp, nil
}

func (uc *CurrencyUsecase) Health(ctx context.Context) error {
	return uc.converter.StoreStatus(ctx)
}
