package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "impulse_dash_fetch_duration_seconds",
			Help:    "Survey dataset fetch duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"source"},
	)

	FetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "impulse_dash_fetch_total",
			Help: "Total dataset fetches by outcome",
		},
		[]string{"status"},
	)

	RecordsLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "impulse_dash_records_loaded",
			Help: "Survey records in the most recently loaded dataset",
		},
	)

	NullScores = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "impulse_dash_null_scores_total",
			Help: "Construct scores left null because no item was answered",
		},
		[]string{"construct"},
	)

	RenderTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "impulse_dash_render_total",
			Help: "Total page renders by outcome",
		},
		[]string{"page", "status"},
	)

	RenderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "impulse_dash_render_duration_seconds",
			Help:    "Page render duration in seconds, fetch included",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"page"},
	)

	ChartPlaceholders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "impulse_dash_chart_placeholders_total",
			Help: "Charts rendered as placeholders for lack of data",
		},
		[]string{"page", "chart"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "impulse_dash_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "impulse_dash_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			FetchDuration,
			FetchTotal,
			RecordsLoaded,
			NullScores,
			RenderTotal,
			RenderDuration,
			ChartPlaceholders,
			CacheHits,
			CacheMisses,
		)
	})
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
