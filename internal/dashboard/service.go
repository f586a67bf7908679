package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/impulse-dash/backend/internal/ingestion"
	"github.com/impulse-dash/backend/internal/metrics"
	"github.com/impulse-dash/backend/internal/survey"
	"github.com/impulse-dash/backend/pkg/logger"
)

var (
	ErrPageNotFound  = errors.New("page not found")
	ErrChartNotFound = errors.New("chart not found")
)

type Options struct {
	Constructs []survey.ConstructDefinition
	Pages      []Page
	Orders     map[string][]string
}

type Service struct {
	source     ingestion.Source
	constructs []survey.ConstructDefinition
	pages      []Page
	orders     map[string][]string
}

func NewService(source ingestion.Source, opts Options) (*Service, error) {
	if opts.Constructs == nil {
		opts.Constructs = survey.DefaultConstructs()
	}
	if opts.Pages == nil {
		opts.Pages = DefaultPages()
	}
	if opts.Orders == nil {
		opts.Orders = DefaultOrders()
	}

	if err := survey.ValidateDefinitions(opts.Constructs); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(opts.Pages))
	for _, p := range opts.Pages {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("duplicate page %q", p.Name)
		}
		seen[p.Name] = struct{}{}
	}

	return &Service{
		source:     source,
		constructs: opts.Constructs,
		pages:      opts.Pages,
		orders:     foldOrders(opts.Orders),
	}, nil
}

// foldOrders lower-cases order keys; config keys arrive lower-cased from
// viper, so lookups fold the field name the same way.
func foldOrders(orders map[string][]string) map[string][]string {
	out := make(map[string][]string, len(orders))
	for field, order := range orders {
		out[strings.ToLower(field)] = order
	}
	return out
}

func (s *Service) Pages() []Page {
	return append([]Page(nil), s.pages...)
}

func (s *Service) Page(name string) (Page, error) {
	for _, p := range s.pages {
		if p.Name == name {
			return p, nil
		}
	}
	return Page{}, fmt.Errorf("%w: %s", ErrPageNotFound, name)
}

// Snapshot is one scored load of the dataset.
type Snapshot struct {
	Source     string                `json:"source"`
	Columns    []survey.Column       `json:"columns"`
	Records    []survey.ScoredRecord `json:"records"`
	NullScores map[string]int        `json:"nullScores"`

	schema survey.Schema
}

type Rendering struct {
	ID         string         `json:"id"`
	Page       string         `json:"page"`
	Title      string         `json:"title"`
	Source     string         `json:"source"`
	Records    int            `json:"records"`
	NullScores map[string]int `json:"nullScores"`
	RenderedAt time.Time      `json:"renderedAt"`
	Charts     []Table        `json:"charts"`
}

// Snapshot fetches the dataset and derives construct scores.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	ds, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	scored, err := survey.DeriveScores(ds, s.constructs)
	if err != nil {
		return nil, err
	}

	nulls := survey.NullScores(scored)
	for name, n := range nulls {
		if n > 0 {
			metrics.NullScores.WithLabelValues(name).Add(float64(n))
		}
	}

	return &Snapshot{
		Source:     ds.Source,
		Columns:    ds.Schema.Columns(),
		Records:    scored,
		NullScores: nulls,
		schema:     ds.Schema,
	}, nil
}

// Render builds every chart of a page from a fresh snapshot. A chart without
// enough data becomes a placeholder; any other failure aborts the render.
func (s *Service) Render(ctx context.Context, pageName string) (*Rendering, error) {
	page, err := s.Page(pageName)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	start := time.Now()
	log := logger.GetLogger().With(zap.String("render_id", id), zap.String("page", page.Name))

	rendering, err := s.render(ctx, id, page, log)
	metrics.RenderDuration.WithLabelValues(page.Name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RenderTotal.WithLabelValues(page.Name, "error").Inc()
		log.Error("Page render failed", zap.Error(err))
		return nil, err
	}

	metrics.RenderTotal.WithLabelValues(page.Name, "ok").Inc()
	log.Info("Page rendered",
		zap.Int("records", rendering.Records),
		zap.Any("null_scores", rendering.NullScores),
		zap.Int("charts", len(rendering.Charts)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return rendering, nil
}

func (s *Service) render(ctx context.Context, id string, page Page, log *zap.Logger) (*Rendering, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	rendering := &Rendering{
		ID:         id,
		Page:       page.Name,
		Title:      page.Title,
		Source:     snap.Source,
		Records:    len(snap.Records),
		NullScores: snap.NullScores,
		RenderedAt: time.Now().UTC(),
		Charts:     make([]Table, 0, len(page.Charts)),
	}

	for _, chart := range page.Charts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		table, err := s.chartTable(snap, chart)
		var insufficient *survey.InsufficientDataError
		if errors.As(err, &insufficient) {
			metrics.ChartPlaceholders.WithLabelValues(page.Name, chart.ID).Inc()
			log.Warn("Chart rendered as placeholder", zap.String("chart", chart.ID), zap.Error(err))
			table = Table{Chart: chart.ID, Title: chart.Title, Kind: chart.Kind, Error: err.Error()}
		} else if err != nil {
			return nil, err
		}
		rendering.Charts = append(rendering.Charts, table)
	}
	return rendering, nil
}

// RenderChart builds a single chart. Unlike Render, a chart without enough
// data is returned as *survey.InsufficientDataError.
func (s *Service) RenderChart(ctx context.Context, pageName, chartID string) (*Table, error) {
	page, err := s.Page(pageName)
	if err != nil {
		return nil, err
	}
	chart, ok := page.Chart(chartID)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrChartNotFound, pageName, chartID)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	table, err := s.chartTable(snap, chart)
	if err != nil {
		return nil, err
	}
	return &table, nil
}

func (s *Service) chartTable(snap *Snapshot, chart ChartSpec) (Table, error) {
	if err := CheckChart(chart, snap.schema, s.constructs); err != nil {
		return Table{}, err
	}
	return BuildTable(snap.Records, chart, s.orders[strings.ToLower(chart.categoryField())])
}
