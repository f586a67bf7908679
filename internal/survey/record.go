// Package survey holds the survey data model, the composite score builder
// and the aggregations that shape scored records into chart tables.
package survey

import (
	"encoding/json"
	"strconv"
)

type Kind int

const (
	KindNumeric Kind = iota
	KindCategorical
)

func (k Kind) String() string {
	if k == KindNumeric {
		return "numeric"
	}
	return "categorical"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Schema is the ordered column set of a loaded dataset.
type Schema struct {
	columns []Column
	index   map[string]int
}

func NewSchema(columns []Column) Schema {
	s := Schema{
		columns: append([]Column(nil), columns...),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range s.columns {
		s.index[c.Name] = i
	}
	return s
}

func (s Schema) Lookup(name string) (Column, bool) {
	i, ok := s.index[name]
	if !ok {
		return Column{}, false
	}
	return s.columns[i], true
}

func (s Schema) Columns() []Column {
	return append([]Column(nil), s.columns...)
}

func (s Schema) Names() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

func (s Schema) Len() int {
	return len(s.columns)
}

// SurveyRecord is one respondent. A column missing from Items or Labels is a
// missing response for that respondent.
type SurveyRecord struct {
	Items  map[string]float64 `json:"items"`
	Labels map[string]string  `json:"labels"`
}

type Dataset struct {
	Source  string
	Schema  Schema
	Records []SurveyRecord
}

// Score is a construct score; Valid is false when the respondent answered
// none of the construct's items.
type Score struct {
	Value float64
	Valid bool
}

func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

type ScoredRecord struct {
	SurveyRecord
	Scores map[string]Score `json:"scores"`
}

// Value resolves a numeric field, looking at construct scores before raw items.
func (r ScoredRecord) Value(field string) (float64, bool) {
	if s, ok := r.Scores[field]; ok {
		return s.Value, s.Valid
	}
	v, ok := r.Items[field]
	return v, ok
}

// Category resolves a field as a group label. Numeric fields are formatted
// so Likert items can be grouped directly.
func (r ScoredRecord) Category(field string) (string, bool) {
	if l, ok := r.Labels[field]; ok {
		return l, true
	}
	if v, ok := r.Value(field); ok {
		return strconv.FormatFloat(v, 'g', -1, 64), true
	}
	return "", false
}
