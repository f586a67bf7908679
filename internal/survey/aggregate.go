package survey

import (
	"math"
	"sort"

	"github.com/maruel/natural"
	"gonum.org/v1/gonum/stat"
)

type CountTable map[string]int

// MeanTable maps category -> value field -> mean.
type MeanTable map[string]map[string]float64

// Matrix is a square correlation matrix; Values[i][j] relates Fields[i] and Fields[j].
type Matrix struct {
	Fields []string    `json:"fields"`
	Values [][]float64 `json:"values"`
	Pairs  int         `json:"pairs"`
}

// CountByCategory counts records per label of field. Records without the
// field are not counted. Labels are used verbatim.
func CountByCategory(records []ScoredRecord, field string) CountTable {
	counts := make(CountTable)
	for _, r := range records {
		if c, ok := r.Category(field); ok {
			counts[c]++
		}
	}
	return counts
}

// MeanByCategory averages each value field within each group of groupField.
// Only present values contribute; a category with no contributions at all is
// left out, as is a value field with no contributions inside a category.
func MeanByCategory(records []ScoredRecord, groupField string, valueFields []string) MeanTable {
	samples := make(map[string]map[string][]float64)
	for _, r := range records {
		c, ok := r.Category(groupField)
		if !ok {
			continue
		}
		for _, f := range valueFields {
			v, ok := r.Value(f)
			if !ok || !finite(v) {
				continue
			}
			byField, exists := samples[c]
			if !exists {
				byField = make(map[string][]float64, len(valueFields))
				samples[c] = byField
			}
			byField[f] = append(byField[f], v)
		}
	}

	out := make(MeanTable, len(samples))
	for c, byField := range samples {
		means := make(map[string]float64, len(byField))
		for f, xs := range byField {
			means[f] = stat.Mean(xs, nil)
		}
		out[c] = means
	}
	return out
}

// CorrelationMatrix computes the Pearson matrix of fieldA and fieldB over
// records that have both.
func CorrelationMatrix(records []ScoredRecord, fieldA, fieldB string) (Matrix, error) {
	xs, ys := pairs(records, fieldA, fieldB)
	if len(xs) < 2 {
		return Matrix{}, &InsufficientDataError{
			Operation: "correlation",
			Fields:    []string{fieldA, fieldB},
			Have:      len(xs),
			Need:      2,
		}
	}

	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return Matrix{}, &InsufficientDataError{
			Operation: "correlation",
			Fields:    []string{fieldA, fieldB},
			Have:      len(xs),
			Need:      2,
			Reason:    "a field has zero variance over the complete pairs",
		}
	}
	r = math.Max(-1, math.Min(1, r))

	return Matrix{
		Fields: []string{fieldA, fieldB},
		Values: [][]float64{{1, r}, {r, 1}},
		Pairs:  len(xs),
	}, nil
}

func pairs(records []ScoredRecord, fieldA, fieldB string) ([]float64, []float64) {
	xs := make([]float64, 0, len(records))
	ys := make([]float64, 0, len(records))
	for _, r := range records {
		a, okA := r.Value(fieldA)
		b, okB := r.Value(fieldB)
		if !okA || !okB || !finite(a) || !finite(b) {
			continue
		}
		xs = append(xs, a)
		ys = append(ys, b)
	}
	return xs, ys
}

// OrderedCategories lists the categories of field. With an explicit order the
// listed categories come first, in that order, followed by unlisted ones in
// first-seen order. Without one, categories are naturally sorted.
func OrderedCategories(records []ScoredRecord, field string, explicitOrder []string) []string {
	var seen []string
	known := make(map[string]struct{})
	for _, r := range records {
		c, ok := r.Category(field)
		if !ok {
			continue
		}
		if _, dup := known[c]; dup {
			continue
		}
		known[c] = struct{}{}
		seen = append(seen, c)
	}

	if len(explicitOrder) == 0 {
		sort.SliceStable(seen, func(i, j int) bool { return natural.Less(seen[i], seen[j]) })
		return seen
	}

	out := make([]string, 0, len(explicitOrder)+len(seen))
	listed := make(map[string]struct{}, len(explicitOrder))
	for _, c := range explicitOrder {
		if _, dup := listed[c]; dup {
			continue
		}
		listed[c] = struct{}{}
		out = append(out, c)
	}
	for _, c := range seen {
		if _, ok := listed[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}
