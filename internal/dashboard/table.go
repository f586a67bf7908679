package dashboard

import (
	"fmt"

	"github.com/impulse-dash/backend/internal/survey"
)

// Series is one value field of a grouped mean bar chart. Values align with
// Table.Categories; nil marks a category where the field had no values.
type Series struct {
	Field  string     `json:"field"`
	Values []*float64 `json:"values"`
}

// Table is the chart input handed to renderers and the JSON API. Only the
// members relevant to Kind are set. Error is set on placeholders.
type Table struct {
	Chart      string                   `json:"chart"`
	Title      string                   `json:"title"`
	Kind       ChartKind                `json:"kind"`
	Categories []string                 `json:"categories,omitempty"`
	Counts     []int                    `json:"counts,omitempty"`
	Series     []Series                 `json:"series,omitempty"`
	Histogram  *survey.HistogramTable   `json:"histogram,omitempty"`
	Summaries  []survey.CategorySummary `json:"summaries,omitempty"`
	Matrix     *survey.Matrix           `json:"matrix,omitempty"`
	Error      string                   `json:"error,omitempty"`
}

func (t Table) Placeholder() bool {
	return t.Error != ""
}

// CheckChart verifies the fields a chart reads exist, either as dataset
// columns or as construct scores. Aggregated fields must be numeric.
func CheckChart(chart ChartSpec, schema survey.Schema, defs []survey.ConstructDefinition) error {
	constructs := make(map[string]struct{}, len(defs))
	for _, d := range defs {
		constructs[d.Name] = struct{}{}
	}
	exists := func(field string) (survey.Kind, bool) {
		if _, ok := constructs[field]; ok {
			return survey.KindNumeric, true
		}
		col, ok := schema.Lookup(field)
		return col.Kind, ok
	}

	if f := chart.categoryField(); f != "" {
		if _, ok := exists(f); !ok {
			return &survey.SchemaError{Field: f, Reason: fmt.Sprintf("chart %q: field not in dataset schema", chart.ID)}
		}
	}
	for _, f := range chart.numericFields() {
		kind, ok := exists(f)
		if !ok {
			return &survey.SchemaError{Field: f, Reason: fmt.Sprintf("chart %q: field not in dataset schema", chart.ID)}
		}
		if kind != survey.KindNumeric {
			return &survey.SchemaError{Field: f, Reason: fmt.Sprintf("chart %q: field is not numeric", chart.ID)}
		}
	}
	return nil
}

// BuildTable aggregates scored records into the table for chart. order is
// the explicit category order of the chart's grouping field, if any.
func BuildTable(records []survey.ScoredRecord, chart ChartSpec, order []string) (Table, error) {
	t := Table{Chart: chart.ID, Title: chart.Title, Kind: chart.Kind}
	if len(chart.Order) > 0 {
		order = chart.Order
	}

	switch chart.Kind {
	case KindPie:
		return countTable(t, records, chart.Field, order)

	case KindBar:
		if chart.GroupField == "" {
			return countTable(t, records, chart.Field, order)
		}
		means := survey.MeanByCategory(records, chart.GroupField, chart.ValueFields)
		if len(means) == 0 {
			return t, &survey.InsufficientDataError{
				Operation: "mean_by_category",
				Fields:    append([]string{chart.GroupField}, chart.ValueFields...),
				Have:      0,
				Need:      1,
			}
		}
		for _, c := range survey.OrderedCategories(records, chart.GroupField, order) {
			if _, ok := means[c]; ok {
				t.Categories = append(t.Categories, c)
			}
		}
		for _, f := range chart.ValueFields {
			s := Series{Field: f, Values: make([]*float64, len(t.Categories))}
			for i, c := range t.Categories {
				if v, ok := means[c][f]; ok {
					v := v
					s.Values[i] = &v
				}
			}
			t.Series = append(t.Series, s)
		}
		return t, nil

	case KindHistogram:
		bins := chart.Bins
		if bins == 0 {
			bins = DefaultBins
		}
		h, err := survey.Histogram(records, chart.Field, bins)
		if err != nil {
			return t, err
		}
		t.Histogram = &h
		return t, nil

	case KindBox:
		if chart.GroupField == "" {
			s, err := survey.Summarize(records, chart.Field)
			if err != nil {
				return t, err
			}
			t.Summaries = []survey.CategorySummary{{Category: chart.Field, Summary: s}}
			t.Categories = []string{chart.Field}
			return t, nil
		}
		sums, err := survey.SummarizeByCategory(records, chart.GroupField, chart.Field, order)
		if err != nil {
			return t, err
		}
		t.Summaries = sums
		for _, s := range sums {
			t.Categories = append(t.Categories, s.Category)
		}
		return t, nil

	case KindHeatmap:
		m, err := survey.CorrelationMatrix(records, chart.Field, chart.FieldB)
		if err != nil {
			return t, err
		}
		t.Matrix = &m
		t.Categories = m.Fields
		return t, nil
	}
	return t, fmt.Errorf("chart %q: unknown kind %q", chart.ID, chart.Kind)
}

func countTable(t Table, records []survey.ScoredRecord, field string, order []string) (Table, error) {
	counts := survey.CountByCategory(records, field)
	if len(counts) == 0 {
		return t, &survey.InsufficientDataError{Operation: "count_by_category", Fields: []string{field}, Have: 0, Need: 1}
	}
	for _, c := range survey.OrderedCategories(records, field, order) {
		n, ok := counts[c]
		if !ok {
			continue
		}
		t.Categories = append(t.Categories, c)
		t.Counts = append(t.Counts, n)
	}
	return t, nil
}
