package ingestion

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impulse-dash/backend/internal/survey"
	"github.com/impulse-dash/backend/pkg/retry"
)

const sampleCSV = "gender,income,promo_deadline_focus\nFemale,Under RM100,4\nMale,Over RM300,2\n"

func fastRetry() retry.Config {
	return retry.Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestHTTPSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	src := NewHTTPSource(HTTPConfig{URL: srv.URL, Retry: fastRetry()}, nil)

	ds, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, srv.URL, ds.Source)
	assert.Len(t, ds.Records, 2)
}

func TestHTTPSource_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	src := NewHTTPSource(HTTPConfig{URL: srv.URL, Retry: fastRetry()}, nil)

	ds, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, ds.Records, 2)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPSource_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	src := NewHTTPSource(HTTPConfig{URL: srv.URL, Retry: fastRetry()}, nil)

	_, err := src.Fetch(context.Background())
	require.Error(t, err)

	var unavailable *survey.DataUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, srv.URL, unavailable.Source)

	var status *StatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, http.StatusNotFound, status.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPSource_InvalidCSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("a,b\n1,2,3\n"))
	}))
	defer srv.Close()

	src := NewHTTPSource(HTTPConfig{URL: srv.URL, Retry: fastRetry()}, nil)

	_, err := src.Fetch(context.Background())
	var unavailable *survey.DataUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Contains(t, err.Error(), "invalid csv")
}

func TestHTTPSource_BodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	src := NewHTTPSource(HTTPConfig{URL: srv.URL, MaxBytes: 8, Retry: fastRetry()}, nil)

	_, err := src.FetchRaw(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 8 bytes")
}

func TestTransient(t *testing.T) {
	assert.True(t, transient(&StatusError{Code: 502}))
	assert.True(t, transient(&StatusError{Code: http.StatusTooManyRequests}))
	assert.False(t, transient(&StatusError{Code: 403}))
	assert.False(t, transient(context.Canceled))
	assert.False(t, transient(errors.New("boom")))
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "survey.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))

	src := NewFileSource(path, nil)
	assert.Equal(t, "file://"+path, src.Name())

	ds, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, ds.Records, 2)

	_, err = NewFileSource(filepath.Join(t.TempDir(), "missing.csv"), nil).Fetch(context.Background())
	var unavailable *survey.DataUnavailableError
	assert.ErrorAs(t, err, &unavailable)
}
