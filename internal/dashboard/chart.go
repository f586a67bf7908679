// Package dashboard turns a survey source into rendered dashboard pages: one
// fetch, one scoring pass and one aggregation per chart.
package dashboard

import (
	"fmt"
	"regexp"
)

type ChartKind string

const (
	KindPie       ChartKind = "pie"
	KindHistogram ChartKind = "histogram"
	KindBox       ChartKind = "box"
	KindBar       ChartKind = "bar"
	KindHeatmap   ChartKind = "heatmap"
)

const DefaultBins = 5

// MaxBins bounds histogram bins.
const MaxBins = 100

var identifier = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ValidIdentifier reports whether id can name a page or chart.
func ValidIdentifier(id string) bool {
	return identifier.MatchString(id)
}

// ChartSpec describes one chart. Which fields are used depends on Kind:
//
//	pie        Field
//	histogram  Field, Bins
//	box        Field, optional GroupField
//	bar        Field for counts, or GroupField and ValueFields for means
//	heatmap    Field and FieldB
//
// Order overrides the configured category order of the grouping field.
type ChartSpec struct {
	ID          string    `json:"id" mapstructure:"id"`
	Title       string    `json:"title" mapstructure:"title"`
	Kind        ChartKind `json:"kind" mapstructure:"kind"`
	Field       string    `json:"field,omitempty" mapstructure:"field"`
	GroupField  string    `json:"groupField,omitempty" mapstructure:"groupField"`
	ValueFields []string  `json:"valueFields,omitempty" mapstructure:"valueFields"`
	FieldB      string    `json:"fieldB,omitempty" mapstructure:"fieldB"`
	Bins        int       `json:"bins,omitempty" mapstructure:"bins"`
	Order       []string  `json:"order,omitempty" mapstructure:"order"`
}

func (c ChartSpec) Validate() error {
	if !ValidIdentifier(c.ID) {
		return fmt.Errorf("chart id %q is not a valid identifier", c.ID)
	}
	switch c.Kind {
	case KindPie, KindHistogram:
		if c.Field == "" {
			return fmt.Errorf("chart %q: %s chart requires field", c.ID, c.Kind)
		}
	case KindBox:
		if c.Field == "" {
			return fmt.Errorf("chart %q: box chart requires field", c.ID)
		}
	case KindBar:
		means := c.GroupField != "" && len(c.ValueFields) > 0
		if !means && c.Field == "" {
			return fmt.Errorf("chart %q: bar chart requires field, or groupField with valueFields", c.ID)
		}
		if means && c.Field != "" {
			return fmt.Errorf("chart %q: bar chart takes field or groupField, not both", c.ID)
		}
	case KindHeatmap:
		if c.Field == "" || c.FieldB == "" {
			return fmt.Errorf("chart %q: heatmap requires field and fieldB", c.ID)
		}
	default:
		return fmt.Errorf("chart %q: unknown kind %q", c.ID, c.Kind)
	}
	if c.Bins < 0 || c.Bins > MaxBins {
		return fmt.Errorf("chart %q: bins must be between 0 and %d", c.ID, MaxBins)
	}
	return nil
}

// categoryField is the field whose values label the chart's categories.
func (c ChartSpec) categoryField() string {
	switch c.Kind {
	case KindPie:
		return c.Field
	case KindBar:
		if c.GroupField != "" {
			return c.GroupField
		}
		return c.Field
	case KindBox:
		return c.GroupField
	}
	return ""
}

// numericFields lists the fields the chart aggregates as numbers.
func (c ChartSpec) numericFields() []string {
	switch c.Kind {
	case KindHistogram, KindBox:
		return []string{c.Field}
	case KindBar:
		return c.ValueFields
	case KindHeatmap:
		return []string{c.Field, c.FieldB}
	}
	return nil
}

type Page struct {
	Name   string      `json:"name" mapstructure:"name"`
	Title  string      `json:"title" mapstructure:"title"`
	Charts []ChartSpec `json:"charts" mapstructure:"charts"`
}

func (p Page) Validate() error {
	if !ValidIdentifier(p.Name) {
		return fmt.Errorf("page name %q is not a valid identifier", p.Name)
	}
	if len(p.Charts) == 0 {
		return fmt.Errorf("page %q has no charts", p.Name)
	}
	seen := make(map[string]struct{}, len(p.Charts))
	for _, c := range p.Charts {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("page %q: %w", p.Name, err)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("page %q: duplicate chart id %q", p.Name, c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}

func (p Page) Chart(id string) (ChartSpec, bool) {
	for _, c := range p.Charts {
		if c.ID == id {
			return c, true
		}
	}
	return ChartSpec{}, false
}

// DefaultOrders holds the category orders of the stock demographic fields.
func DefaultOrders() map[string][]string {
	return map[string][]string{
		"monthly_income": {"Under RM100", "RM100-RM300", "Over RM300"},
		"age":            {"Under 18", "18-24", "25-34", "35-44", "45 and above"},
	}
}

func DefaultPages() []Page {
	return []Page{
		{
			Name:  "demographics",
			Title: "Respondent Demographics",
			Charts: []ChartSpec{
				{ID: "gender", Title: "Gender", Kind: KindPie, Field: "gender"},
				{ID: "age", Title: "Age Group", Kind: KindBar, Field: "age"},
				{ID: "income", Title: "Monthly Income", Kind: KindBar, Field: "monthly_income"},
			},
		},
		{
			Name:  "constructs",
			Title: "Impulse Buying Drivers",
			Charts: []ChartSpec{
				{ID: "scarcity-distribution", Title: "Scarcity Score Distribution", Kind: KindHistogram, Field: "Scarcity", Bins: DefaultBins},
				{ID: "serendipity-distribution", Title: "Serendipity Score Distribution", Kind: KindHistogram, Field: "Serendipity", Bins: DefaultBins},
				{ID: "impulse-distribution", Title: "Impulse Buying Score Distribution", Kind: KindHistogram, Field: "ImpulseBuying", Bins: DefaultBins},
				{ID: "trust-by-gender", Title: "Trust by Gender", Kind: KindBox, Field: "Trust", GroupField: "gender"},
				{ID: "scores-by-income", Title: "Mean Scores by Monthly Income", Kind: KindBar, GroupField: "monthly_income", ValueFields: []string{"Scarcity", "Serendipity", "Trust", "Price"}},
				{ID: "scarcity-serendipity", Title: "Scarcity vs Serendipity Correlation", Kind: KindHeatmap, Field: "Scarcity", FieldB: "Serendipity"},
			},
		},
	}
}
