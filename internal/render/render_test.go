package render

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impulse-dash/backend/internal/dashboard"
	"github.com/impulse-dash/backend/internal/survey"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func ptr(v float64) *float64 { return &v }

func sampleTables() []dashboard.Table {
	return []dashboard.Table{
		{
			Chart: "gender", Title: "Gender", Kind: dashboard.KindPie,
			Categories: []string{"Female", "Male"}, Counts: []int{3, 2},
		},
		{
			Chart: "income", Title: "Income", Kind: dashboard.KindBar,
			Categories: []string{"Under RM100", "RM100-RM300", "Over RM300"}, Counts: []int{4, 2, 1},
		},
		{
			Chart: "means", Title: "Mean scores", Kind: dashboard.KindBar,
			Categories: []string{"Under RM100", "Over RM300"},
			Series: []dashboard.Series{
				{Field: "Scarcity", Values: []*float64{ptr(3.5), ptr(2)}},
				{Field: "Trust", Values: []*float64{nil, ptr(4.25)}},
			},
		},
		{
			Chart: "scarcity", Title: "Scarcity", Kind: dashboard.KindHistogram,
			Histogram: &survey.HistogramTable{Field: "Scarcity", Total: 5, Bins: []survey.Bin{
				{Lower: 1, Upper: 3, Count: 2},
				{Lower: 3, Upper: 5, Count: 3},
			}},
		},
		{
			Chart: "trust-by-gender", Title: "Trust", Kind: dashboard.KindBox,
			Categories: []string{"Female", "Male"},
			Summaries: []survey.CategorySummary{
				{Category: "Female", Summary: survey.Summary{Count: 3, Mean: 3, Min: 1, Q1: 2, Median: 3, Q3: 4, Max: 5}},
				{Category: "Male", Summary: survey.Summary{Count: 1, Mean: 2, Min: 2, Q1: 2, Median: 2, Q3: 2, Max: 2}},
			},
		},
		{
			Chart: "corr", Title: "Correlation", Kind: dashboard.KindHeatmap,
			Categories: []string{"Scarcity", "Serendipity"},
			Matrix: &survey.Matrix{
				Fields: []string{"Scarcity", "Serendipity"},
				Values: [][]float64{{1, 0.42}, {0.42, 1}},
				Pairs:  5,
			},
		},
	}
}

func TestPNG(t *testing.T) {
	for _, table := range sampleTables() {
		t.Run(table.Chart, func(t *testing.T) {
			img, err := PNG(table, Options{WidthIn: 4, HeightIn: 3})
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(img, pngMagic))
		})
	}
}

func TestPNG_Placeholder(t *testing.T) {
	_, err := PNG(dashboard.Table{Chart: "corr", Kind: dashboard.KindHeatmap, Error: "insufficient data"}, DefaultOptions())
	assert.ErrorIs(t, err, ErrPlaceholder)
}

func TestPNG_UnknownKind(t *testing.T) {
	_, err := PNG(dashboard.Table{Chart: "x", Kind: "radar"}, DefaultOptions())
	assert.ErrorContains(t, err, "unknown chart kind")
}

func TestWorkbook(t *testing.T) {
	charts := append(sampleTables(), dashboard.Table{
		Chart: "empty", Title: "Empty", Kind: dashboard.KindHeatmap, Error: "insufficient data for correlation",
	})
	r := &dashboard.Rendering{
		ID:         "render-1",
		Page:       "constructs",
		Title:      "Constructs",
		Source:     "file://survey.csv",
		Records:    7,
		NullScores: map[string]int{"Trust": 1, "Scarcity": 0},
		RenderedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Charts:     charts,
	}

	f, err := Workbook(r)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Equal(t, []string{"Summary", "gender", "income", "means", "scarcity", "trust-by-gender", "corr", "empty"}, sheets)

	v, err := f.GetCellValue("Summary", "B2")
	require.NoError(t, err)
	assert.Equal(t, "render-1", v)

	v, err = f.GetCellValue("gender", "A3")
	require.NoError(t, err)
	assert.Equal(t, "Female", v)
	v, err = f.GetCellValue("gender", "B3")
	require.NoError(t, err)
	assert.Equal(t, "3", v)

	v, err = f.GetCellValue("means", "C3")
	require.NoError(t, err)
	assert.Empty(t, v, "missing mean stays blank")

	v, err = f.GetCellValue("corr", "C3")
	require.NoError(t, err)
	assert.Equal(t, "0.42", v)

	v, err = f.GetCellValue("empty", "A3")
	require.NoError(t, err)
	assert.Equal(t, "No data", v)

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	assert.NotZero(t, buf.Len())
}

func TestSheetName(t *testing.T) {
	used := map[string]struct{}{"summary": {}}

	assert.Equal(t, "gender", sheetName("gender", used))
	assert.Equal(t, "gender~2", sheetName("gender", used))
	assert.Equal(t, "Summary~2", sheetName("Summary", used))

	long := sheetName("a-very-long-chart-identifier-that-overflows", used)
	assert.Len(t, long, maxSheetName)
}
