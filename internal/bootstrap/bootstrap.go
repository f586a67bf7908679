// Package bootstrap builds the data source from configuration for the API
// server and the export command.
package bootstrap

import (
	"time"

	"go.uber.org/zap"

	"github.com/impulse-dash/backend/internal/ingestion"
	"github.com/impulse-dash/backend/pkg/circuitbreaker"
	"github.com/impulse-dash/backend/pkg/config"
	"github.com/impulse-dash/backend/pkg/logger"
	"github.com/impulse-dash/backend/pkg/retry"
)

type Source interface {
	ingestion.Source
	ingestion.RawSource
}

func Normalizer(cfg *config.Config) *ingestion.Normalizer {
	return ingestion.NewNormalizer(cfg.Schema.Aliases, cfg.Schema.Categorical, cfg.Schema.Missing)
}

// RawSource returns a file source when source.path is set, otherwise the
// remote HTTP source with retries and a circuit breaker.
func RawSource(cfg *config.Config, normalizer *ingestion.Normalizer) Source {
	if cfg.Source.Path != "" {
		return ingestion.NewFileSource(cfg.Source.Path, normalizer)
	}
	return ingestion.NewHTTPSource(ingestion.HTTPConfig{
		URL:      cfg.Source.URL,
		Timeout:  cfg.Source.Timeout(),
		MaxBytes: cfg.Source.MaxBytes,
		Retry: retry.Config{
			MaxAttempts:    cfg.Source.MaxAttempts,
			InitialDelay:   time.Duration(cfg.Source.InitialDelayMs) * time.Millisecond,
			MaxDelay:       time.Duration(cfg.Source.MaxDelayMs) * time.Millisecond,
			Multiplier:     2,
			JitterFraction: 0.1,
		},
		Breaker: circuitbreaker.Config{
			FailureThreshold: cfg.Source.BreakerFailures,
			Timeout:          time.Duration(cfg.Source.BreakerTimeoutSec) * time.Second,
			OnStateChange: func(name string, from, to circuitbreaker.State) {
				logger.Warn("Source circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		},
	}, normalizer)
}
