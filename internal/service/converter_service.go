package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"converter-service/internal/adapter/postgres"
	"converter-service/internal/entity"
	"converter-service/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var (
	ErrRateUnavailable  = errors.New("exchange rate unavailable")
	ErrStoreUnavailable = errors.New("history store unavailable")
)

// RateUnavailableMessage is shown to users when no provider produced a rate.
const RateUnavailableMessage = "Não foi possível obter a taxa de câmbio"

const identityProvider = "identity"

const snapshotConcurrency = 4

// RateProvider returns units of to per one unit of from.
type RateProvider interface {
	Name() string
	PairRate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

type Options struct {
	ProviderTimeout time.Duration
	ConvertTimeout  time.Duration
	HistoryLimit    int
	MaxHistoryLimit int
}

func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		ProviderTimeout: cfg.Provider.Timeout,
		ConvertTimeout:  cfg.Converter.ConvertTimeout,
		HistoryLimit:    cfg.Converter.HistoryLimit,
		MaxHistoryLimit: cfg.Converter.MaxHistoryLimit,
	}
}

type ConverterService struct {
	providers []RateProvider
	repo      postgres.ConversionRepository
	opts      Options
	logger    *logrus.Logger

	inflight singleflight.Group
	now      func() time.Time
}

// NewConverterService builds the converter. repo may be nil when the store
// could not be reached at startup: conversions still work but are reported
// as not persisted, and history reads fail with ErrStoreUnavailable.
func NewConverterService(providers []RateProvider, repo postgres.ConversionRepository, opts Options, logger *logrus.Logger) *ConverterService {
	return &ConverterService{
		providers: providers,
		repo:      repo,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *ConverterService) GetExchangeRate(ctx context.Context, from, to string) (entity.ExchangeRate, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))

	if from == to {
		return entity.ExchangeRate{
			From:      from,
			To:        to,
			Rate:      decimal.NewFromInt(1),
			Provider:  identityProvider,
			FetchedAt: s.now().UTC(),
		}, nil
	}

	// Identical lookups already in flight share one provider round trip. The
	// fetch is detached from the first caller's cancellation so that one
	// caller going away does not fail the others.
	key := from + "/" + to
	ch := s.inflight.DoChan(key, func() (any, error) {
		return s.fetchRate(context.WithoutCancel(ctx), from, to)
	})

	select {
	case <-ctx.Done():
		return entity.ExchangeRate{}, fmt.Errorf("%w for %s: %w", ErrRateUnavailable, key, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return entity.ExchangeRate{}, res.Err
		}
		if res.Shared {
			s.logger.WithField("pair", key).Debug("Shared in-flight rate lookup")
		}
		return res.Val.(entity.ExchangeRate), nil
	}
}

func (s *ConverterService) fetchRate(ctx context.Context, from, to string) (entity.ExchangeRate, error) {
	var errs error

	for _, p := range s.providers {
		log := s.logger.WithFields(logrus.Fields{"provider": p.Name(), "from": from, "to": to})

		timer := prometheus.NewTimer(providerDuration.WithLabelValues(p.Name()))
		pctx, cancel := context.WithTimeout(ctx, s.opts.ProviderTimeout)
		rate, err := p.PairRate(pctx, from, to)
		cancel()
		timer.ObserveDuration()

		if err == nil && !rate.IsPositive() {
			err = fmt.Errorf("non-positive rate %s", rate)
		}
		if err != nil {
			providerRequests.WithLabelValues(p.Name(), "error").Inc()
			log.WithError(err).Warn("Rate provider failed")
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}

		providerRequests.WithLabelValues(p.Name(), "success").Inc()
		log.WithField("rate", rate.String()).Info("Fetched exchange rate")
		return entity.ExchangeRate{
			From:      from,
			To:        to,
			Rate:      rate,
			Provider:  p.Name(),
			FetchedAt: s.now().UTC(),
		}, nil
	}

	if errs == nil {
		errs = errors.New("no rate providers configured")
	}
	s.logger.WithError(errs).Errorf("All rate providers failed for %s/%s", from, to)
	return entity.ExchangeRate{}, fmt.Errorf("%w for %s/%s: %w", ErrRateUnavailable, from, to, errs)
}

// ConvertCurrency fetches a fresh rate, computes amount × rate and tries to
// record the conversion. A store failure does not fail the conversion; it is
// reported through Conversion.Persisted.
func (s *ConverterService) ConvertCurrency(ctx context.Context, req entity.ConversionRequest) (*entity.Conversion, error) {
	rate, err := s.GetExchangeRate(ctx, req.From, req.To)
	if err != nil {
		conversionsTotal.WithLabelValues(outcomeRateUnavailable).Inc()
		s.logger.WithError(err).Warn("Conversion aborted, no exchange rate")
		return nil, err
	}

	req.From, req.To = rate.From, rate.To
	conv := &entity.Conversion{
		Record:    entity.NewConversionRecord(req, rate.Rate, s.now().UTC()),
		Provider:  rate.Provider,
		Converted: true,
	}

	log := s.logger.WithFields(logrus.Fields{
		"from":      req.From,
		"to":        req.To,
		"amount":    req.Amount.String(),
		"converted": conv.Record.ConvertedAmount.String(),
	})

	if s.repo == nil {
		conversionsTotal.WithLabelValues(outcomeNotPersisted).Inc()
		log.Warn("Conversion not persisted, history store unavailable")
		return conv, nil
	}

	id, err := s.repo.SaveConversion(ctx, conv.Record)
	if err != nil {
		conversionsTotal.WithLabelValues(outcomeNotPersisted).Inc()
		log.WithError(err).Error("Conversion not persisted")
		return conv, nil
	}

	conv.Record.ID = id
	conv.Persisted = true
	conversionsTotal.WithLabelValues(outcomePersisted).Inc()
	log.WithField("id", id).Info("Conversion recorded")
	return conv, nil
}

// GetConversionHistory returns up to limit records, newest first. When the
// store cannot be read the returned slice is empty and the error wraps
// ErrStoreUnavailable, so "no history yet" and "store down" stay distinct.
func (s *ConverterService) GetConversionHistory(ctx context.Context, limit int) ([]entity.ConversionRecord, error) {
	limit = s.clampLimit(limit)

	if s.repo == nil {
		return []entity.ConversionRecord{}, ErrStoreUnavailable
	}

	records, err := s.repo.GetConversionHistory(ctx, limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to read conversion history")
		return []entity.ConversionRecord{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if records == nil {
		records = []entity.ConversionRecord{}
	}
	return records, nil
}

func (s *ConverterService) clampLimit(limit int) int {
	if limit <= 0 {
		return s.opts.HistoryLimit
	}
	if s.opts.MaxHistoryLimit > 0 && limit > s.opts.MaxHistoryLimit {
		return s.opts.MaxHistoryLimit
	}
	return limit
}

// StoreStatus reports whether the history store is reachable.
func (s *ConverterService) StoreStatus(ctx context.Context) error {
	if s.repo == nil {
		return ErrStoreUnavailable
	}
	if err := s.repo.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// RecordSnapshots fetches the current rate of every pair and stores the ones
// that succeeded in a single batch. It returns how many snapshots were stored
// and the combined per-pair failures.
func (s *ConverterService) RecordSnapshots(ctx context.Context, pairs []entity.CurrencyPair) (int, error) {
	var (
		mu        sync.Mutex
		snapshots []entity.RateSnapshot
		errs      error
	)

	var g errgroup.Group
	g.SetLimit(snapshotConcurrency)

	for _, pair := range pairs {
		g.Go(func() error {
			rate, err := s.GetExchangeRate(ctx, pair.From, pair.To)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", pair, err))
				return nil
			}
			snapshots = append(snapshots, entity.SnapshotFromRate(rate))
			return nil
		})
	}
	_ = g.Wait()

	if len(snapshots) == 0 {
		return 0, errs
	}

	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].From != snapshots[j].From {
			return snapshots[i].From < snapshots[j].From
		}
		return snapshots[i].To < snapshots[j].To
	})

	if s.repo == nil {
		return 0, multierr.Append(errs, ErrStoreUnavailable)
	}
	if err := s.repo.StoreRateSnapshots(ctx, snapshots); err != nil {
		return 0, multierr.Append(errs, fmt.Errorf("store snapshots: %w", err))
	}

	s.logger.Infof("Recorded %d of %d rate snapshots", len(snapshots), len(pairs))
	return len(snapshots), errs
}
