package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/impulse-dash/backend/internal/survey"
)

var (
	nonAlnum      = regexp.MustCompile(`[^a-z0-9]+`)
	unnamedColumn = regexp.MustCompile(`^unnamed(_\d+)?$`)
)

var DefaultMissingTokens = []string{"", "na", "n/a", "nan", "null", "none", "#n/a", "-"}

// Normalizer maps raw CSV headers onto canonical column names and decides
// which cells count as missing.
type Normalizer struct {
	aliases     map[string]string
	categorical map[string]struct{}
	missing     map[string]struct{}
}

func NewNormalizer(aliases map[string]string, categorical, missingTokens []string) *Normalizer {
	n := &Normalizer{
		aliases:     make(map[string]string, len(aliases)),
		categorical: make(map[string]struct{}, len(categorical)),
		missing:     make(map[string]struct{}),
	}
	for from, to := range aliases {
		n.aliases[NormalizeHeader(from)] = NormalizeHeader(to)
	}
	for _, c := range categorical {
		n.categorical[n.Column(c)] = struct{}{}
	}
	if len(missingTokens) == 0 {
		missingTokens = DefaultMissingTokens
	}
	for _, tok := range missingTokens {
		n.missing[strings.ToLower(strings.TrimSpace(tok))] = struct{}{}
	}
	return n
}

// NormalizeHeader lower-cases h and collapses every run of characters other
// than letters and digits into a single underscore.
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	h = nonAlnum.ReplaceAllString(h, "_")
	return strings.Trim(h, "_")
}

func (n *Normalizer) Column(header string) string {
	name := NormalizeHeader(header)
	if alias, ok := n.aliases[name]; ok {
		return alias
	}
	return name
}

func (n *Normalizer) IsMissing(cell string) bool {
	_, ok := n.missing[strings.ToLower(strings.TrimSpace(cell))]
	return ok
}

func (n *Normalizer) forcedCategorical(name string) bool {
	_, ok := n.categorical[name]
	return ok
}

// ParseCSV reads a header row and data rows into a dataset. Index columns
// written by dataframe exports (blank or "Unnamed: N" headers) are dropped.
func ParseCSV(r io.Reader, source string, n *Normalizer) (*survey.Dataset, error) {
	if n == nil {
		n = NewNormalizer(nil, nil, nil)
	}
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := n.Column(h)
		if name == "" || unnamedColumn.MatchString(name) {
			continue
		}
		if prev, dup := seen[name]; dup {
			return nil, fmt.Errorf("columns %d and %d both normalise to %q", prev+1, i+1, name)
		}
		seen[name] = i
		names[i] = name
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv rows: %w", err)
	}

	kinds := inferKinds(names, rows, n)

	var columns []survey.Column
	for i, name := range names {
		if name != "" {
			columns = append(columns, survey.Column{Name: name, Kind: kinds[i]})
		}
	}

	records := make([]survey.SurveyRecord, len(rows))
	for r, row := range rows {
		rec := survey.SurveyRecord{
			Items:  make(map[string]float64),
			Labels: make(map[string]string),
		}
		for i, cell := range row {
			name := names[i]
			if name == "" || n.IsMissing(cell) {
				continue
			}
			if kinds[i] == survey.KindNumeric {
				v, _ := parseNumber(cell)
				rec.Items[name] = v
			} else {
				rec.Labels[name] = strings.TrimSpace(cell)
			}
		}
		records[r] = rec
	}

	return &survey.Dataset{
		Source:  source,
		Schema:  survey.NewSchema(columns),
		Records: records,
	}, nil
}

func inferKinds(names []string, rows [][]string, n *Normalizer) []survey.Kind {
	kinds := make([]survey.Kind, len(names))
	for i, name := range names {
		if name == "" {
			continue
		}
		if n.forcedCategorical(name) {
			kinds[i] = survey.KindCategorical
			continue
		}
		kinds[i] = survey.KindNumeric
		for _, row := range rows {
			cell := row[i]
			if n.IsMissing(cell) {
				continue
			}
			if _, ok := parseNumber(cell); !ok {
				kinds[i] = survey.KindCategorical
				break
			}
		}
	}
	return kinds
}

// parseNumber accepts finite floats only; "inf" and "NaN" spellings that
// strconv understands make the column categorical.
func parseNumber(cell string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
