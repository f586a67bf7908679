package ingestion

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/impulse-dash/backend/internal/metrics"
	"github.com/impulse-dash/backend/internal/survey"
	"github.com/impulse-dash/backend/pkg/logger"
	"github.com/impulse-dash/backend/pkg/utils"
)

type DatasetCache interface {
	GetDataset(ctx context.Context, key string) ([]byte, bool, error)
	SetDataset(ctx context.Context, key string, body []byte, ttl time.Duration) error
}

// CachedSource keeps the raw CSV body of origin in a DatasetCache. Cache
// errors never fail a fetch; they fall through to origin.
type CachedSource struct {
	origin     RawSource
	cache      DatasetCache
	ttl        time.Duration
	normalizer *Normalizer
}

func NewCachedSource(origin RawSource, cache DatasetCache, ttl time.Duration, normalizer *Normalizer) *CachedSource {
	return &CachedSource{origin: origin, cache: cache, ttl: ttl, normalizer: normalizer}
}

func (s *CachedSource) Name() string {
	return s.origin.Name()
}

func (s *CachedSource) Key() string {
	return utils.HashString("dataset", s.origin.Name())
}

func (s *CachedSource) Fetch(ctx context.Context) (*survey.Dataset, error) {
	key := s.Key()

	body, found, err := s.cache.GetDataset(ctx, key)
	switch {
	case err != nil:
		logger.Warn("Dataset cache read failed", zap.String("source", s.Name()), zap.Error(err))
	case found:
		ds, err := decode(s.Name(), body, s.normalizer)
		if err == nil {
			metrics.CacheHits.WithLabelValues("dataset").Inc()
			return ds, nil
		}
		logger.Warn("Cached dataset is unreadable, refetching", zap.String("source", s.Name()), zap.Error(err))
	}
	metrics.CacheMisses.WithLabelValues("dataset").Inc()

	body, err = s.origin.FetchRaw(ctx)
	if err != nil {
		return nil, err
	}
	ds, err := decode(s.Name(), body, s.normalizer)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetDataset(ctx, key, body, s.ttl); err != nil {
		logger.Warn("Dataset cache write failed", zap.String("source", s.Name()), zap.Error(err))
	}
	return ds, nil
}
