package survey

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ColumnValues returns the present finite values of field in record order.
func ColumnValues(records []ScoredRecord, field string) []float64 {
	xs := make([]float64, 0, len(records))
	for _, r := range records {
		if v, ok := r.Value(field); ok && finite(v) {
			xs = append(xs, v)
		}
	}
	return xs
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

type HistogramTable struct {
	Field string `json:"field"`
	Bins  []Bin  `json:"bins"`
	Total int    `json:"total"`
}

// Histogram splits the present values of field into equal-width bins spanning
// [min, max]. The last bin includes max.
func Histogram(records []ScoredRecord, field string, bins int) (HistogramTable, error) {
	xs := ColumnValues(records, field)
	if len(xs) == 0 {
		return HistogramTable{}, &InsufficientDataError{Operation: "histogram", Fields: []string{field}, Have: 0, Need: 1}
	}
	if bins < 1 {
		bins = 1
	}
	sort.Float64s(xs)

	lo, hi := xs[0], xs[len(xs)-1]
	if lo == hi {
		bins = 1
	}
	width := (hi - lo) / float64(bins)

	dividers := make([]float64, bins+1)
	for i := range dividers {
		dividers[i] = lo + float64(i)*width
	}
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, xs, nil)

	table := HistogramTable{Field: field, Bins: make([]Bin, bins), Total: len(xs)}
	for i := range table.Bins {
		upper := dividers[i+1]
		if i == bins-1 {
			upper = hi
		}
		table.Bins[i] = Bin{Lower: dividers[i], Upper: upper, Count: int(counts[i])}
	}
	return table, nil
}

// Summary is the five-number summary plus mean, the input of a box plot.
// Quartiles use the empirical (inverse CDF) definition.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

func Summarize(records []ScoredRecord, field string) (Summary, error) {
	xs := ColumnValues(records, field)
	if len(xs) == 0 {
		return Summary{}, &InsufficientDataError{Operation: "summary", Fields: []string{field}, Have: 0, Need: 1}
	}
	return summarize(xs), nil
}

func summarize(xs []float64) Summary {
	sort.Float64s(xs)
	return Summary{
		Count:  len(xs),
		Mean:   stat.Mean(xs, nil),
		Min:    xs[0],
		Q1:     stat.Quantile(0.25, stat.Empirical, xs, nil),
		Median: stat.Quantile(0.5, stat.Empirical, xs, nil),
		Q3:     stat.Quantile(0.75, stat.Empirical, xs, nil),
		Max:    xs[len(xs)-1],
	}
}

type CategorySummary struct {
	Category string  `json:"category"`
	Summary  Summary `json:"summary"`
}

// SummarizeByCategory summarises valueField within each group of groupField,
// in OrderedCategories order. Groups without values are left out.
func SummarizeByCategory(records []ScoredRecord, groupField, valueField string, order []string) ([]CategorySummary, error) {
	groups := make(map[string][]float64)
	for _, r := range records {
		c, ok := r.Category(groupField)
		if !ok {
			continue
		}
		if v, ok := r.Value(valueField); ok && finite(v) {
			groups[c] = append(groups[c], v)
		}
	}
	if len(groups) == 0 {
		return nil, &InsufficientDataError{Operation: "summary", Fields: []string{groupField, valueField}, Have: 0, Need: 1}
	}

	var out []CategorySummary
	for _, c := range OrderedCategories(records, groupField, order) {
		xs, ok := groups[c]
		if !ok {
			continue
		}
		out = append(out, CategorySummary{Category: c, Summary: summarize(xs)})
	}
	return out, nil
}
