package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/impulse-dash/backend/internal/metrics"
	"github.com/impulse-dash/backend/internal/survey"
	"github.com/impulse-dash/backend/pkg/circuitbreaker"
	"github.com/impulse-dash/backend/pkg/logger"
	"github.com/impulse-dash/backend/pkg/retry"
)

const defaultMaxBytes = 32 << 20

// Source delivers a fully loaded survey dataset. Failures are reported as
// *survey.DataUnavailableError.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (*survey.Dataset, error)
}

// RawSource delivers the undecoded CSV body.
type RawSource interface {
	Name() string
	FetchRaw(ctx context.Context) ([]byte, error)
}

type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Code)
}

// transient reports whether a fetch failure may succeed on a later attempt.
func transient(err error) bool {
	var status *StatusError
	if errors.As(err, &status) {
		return status.Code >= 500 || status.Code == http.StatusTooManyRequests
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}

type HTTPConfig struct {
	URL      string
	Timeout  time.Duration
	MaxBytes int64
	Retry    retry.Config
	Breaker  circuitbreaker.Config
}

type HTTPSource struct {
	url        string
	maxBytes   int64
	httpClient *http.Client
	retry      retry.Config
	breaker    *circuitbreaker.CircuitBreaker
	normalizer *Normalizer
}

func NewHTTPSource(cfg HTTPConfig, normalizer *Normalizer) *HTTPSource {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	retryCfg := cfg.Retry
	retryCfg.Retryable = transient
	if retryCfg.Logger == nil {
		retryCfg.Logger = logger.GetLogger()
	}
	breakerCfg := cfg.Breaker
	breakerCfg.IsFailure = transient
	if breakerCfg.Logger == nil {
		breakerCfg.Logger = logger.GetLogger()
	}

	return &HTTPSource{
		url:        cfg.URL,
		maxBytes:   cfg.MaxBytes,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retry:      retryCfg,
		breaker:    circuitbreaker.New("survey-source", breakerCfg),
		normalizer: normalizer,
	}
}

func (s *HTTPSource) Name() string {
	return s.url
}

func (s *HTTPSource) FetchRaw(ctx context.Context) ([]byte, error) {
	start := time.Now()
	body, err := retry.DoWithResult(ctx, s.retry, func() ([]byte, error) {
		return circuitbreaker.ExecuteWithResult(ctx, s.breaker, func() ([]byte, error) {
			return s.get(ctx)
		})
	})
	metrics.FetchDuration.WithLabelValues("http").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FetchTotal.WithLabelValues("error").Inc()
		logger.Error("Survey fetch failed", zap.String("url", s.url), zap.Error(err))
		return nil, &survey.DataUnavailableError{Source: s.url, Err: err}
	}

	metrics.FetchTotal.WithLabelValues("ok").Inc()
	logger.Info("Survey dataset fetched",
		zap.String("url", s.url),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return body, nil
}

func (s *HTTPSource) get(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.5")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode, URL: s.url}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset body: %w", err)
	}
	if int64(len(body)) > s.maxBytes {
		return nil, retry.Permanent(fmt.Errorf("dataset exceeds %d bytes", s.maxBytes))
	}
	return body, nil
}

func (s *HTTPSource) Fetch(ctx context.Context) (*survey.Dataset, error) {
	body, err := s.FetchRaw(ctx)
	if err != nil {
		return nil, err
	}
	return decode(s.url, body, s.normalizer)
}

// FileSource reads the dataset from a local CSV file.
type FileSource struct {
	path       string
	normalizer *Normalizer
}

func NewFileSource(path string, normalizer *Normalizer) *FileSource {
	return &FileSource{path: path, normalizer: normalizer}
}

func (s *FileSource) Name() string {
	return "file://" + s.path
}

func (s *FileSource) FetchRaw(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &survey.DataUnavailableError{Source: s.Name(), Err: err}
	}
	start := time.Now()
	body, err := os.ReadFile(s.path)
	metrics.FetchDuration.WithLabelValues("file").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FetchTotal.WithLabelValues("error").Inc()
		return nil, &survey.DataUnavailableError{Source: s.Name(), Err: err}
	}
	metrics.FetchTotal.WithLabelValues("ok").Inc()
	return body, nil
}

func (s *FileSource) Fetch(ctx context.Context) (*survey.Dataset, error) {
	body, err := s.FetchRaw(ctx)
	if err != nil {
		return nil, err
	}
	return decode(s.Name(), body, s.normalizer)
}

func decode(name string, body []byte, normalizer *Normalizer) (*survey.Dataset, error) {
	ds, err := ParseCSV(bytes.NewReader(body), name, normalizer)
	if err != nil {
		return nil, &survey.DataUnavailableError{Source: name, Err: fmt.Errorf("invalid csv: %w", err)}
	}
	metrics.RecordsLoaded.Set(float64(len(ds.Records)))
	return ds, nil
}
