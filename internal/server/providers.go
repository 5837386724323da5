package server

import (
	"converter-service/internal/adapter/cbr"
	"converter-service/internal/adapter/exchangerate"
	"converter-service/internal/entity"
	"converter-service/internal/service"
	"converter-service/pkg/config"

	"github.com/sirupsen/logrus"
)

// NewProviders builds the rate providers in configured order. The
// exchangerate provider is left out when no API key is set.
func NewProviders(cfg config.Config, logger *logrus.Logger) []service.RateProvider {
	providers := make([]service.RateProvider, 0, len(cfg.Provider.Order))

	for _, name := range cfg.Provider.Order {
		switch name {
		case config.ProviderExchangeRate:
			if cfg.Provider.ExchangeRate.APIKey == "" {
				logger.Warn("EXCHANGERATE_API_KEY is not set, skipping exchangerate provider")
				continue
			}
			providers = append(providers, exchangerate.NewClient(
				cfg.Provider.ExchangeRate.BaseURL,
				cfg.Provider.ExchangeRate.APIKey,
				cfg.Provider.Timeout,
				logger,
			))
		case config.ProviderCBR:
			providers = append(providers, cbr.NewClient(cfg.Provider.CBR.BaseURL, cfg.Provider.Timeout, logger))
		}
	}

	return providers
}

func SnapshotPairs(cfg config.Config) ([]entity.CurrencyPair, error) {
	pairs := make([]entity.CurrencyPair, 0, len(cfg.Snapshots.Pairs))
	for _, p := range cfg.Snapshots.Pairs {
		from, to, err := config.SplitPair(p)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, entity.CurrencyPair{From: from, To: to})
	}
	return pairs, nil
}
