package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/impulse-dash/backend/internal/dashboard"
)

const (
	summarySheet  = "Summary"
	maxSheetName  = 31
	chartAnchor   = "H2"
	chartWidthPx  = 560
	chartHeightPx = 320
)

var sheetNameReplacer = strings.NewReplacer("[", "", "]", "", ":", "", "*", "", "?", "", "/", "", "\\", "")

// Workbook writes a rendering into a workbook: a summary sheet followed by
// one sheet per chart holding the table and, where excelize supports the
// kind, a native chart over it.
func Workbook(r *dashboard.Rendering) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if err := writeSummary(f, r); err != nil {
		_ = f.Close()
		return nil, err
	}

	used := map[string]struct{}{strings.ToLower(summarySheet): {}}
	for _, t := range r.Charts {
		sheet := sheetName(t.Chart, used)
		if _, err := f.NewSheet(sheet); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to add sheet %q: %w", sheet, err)
		}
		if err := writeTable(f, sheet, t); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to write chart %q: %w", t.Chart, err)
		}
	}
	return f, nil
}

func sheetName(chartID string, used map[string]struct{}) string {
	base := sheetNameReplacer.Replace(chartID)
	if len(base) > maxSheetName {
		base = base[:maxSheetName]
	}
	name := base
	for i := 2; ; i++ {
		if _, taken := used[strings.ToLower(name)]; !taken {
			break
		}
		suffix := fmt.Sprintf("~%d", i)
		cut := base
		if len(cut)+len(suffix) > maxSheetName {
			cut = cut[:maxSheetName-len(suffix)]
		}
		name = cut + suffix
	}
	used[strings.ToLower(name)] = struct{}{}
	return name
}

func writeSummary(f *excelize.File, r *dashboard.Rendering) error {
	rows := [][]interface{}{
		{"Page", r.Title},
		{"Render ID", r.ID},
		{"Source", r.Source},
		{"Rendered at", r.RenderedAt.Format("2006-01-02 15:04:05 MST")},
		{"Records", r.Records},
		{},
		{"Construct", "Null scores"},
	}
	for _, name := range sortedKeys(r.NullScores) {
		rows = append(rows, []interface{}{name, r.NullScores[name]})
	}
	rows = append(rows, []interface{}{}, []interface{}{"Chart", "Status"})
	for _, t := range r.Charts {
		status := "ok"
		if t.Placeholder() {
			status = t.Error
		}
		rows = append(rows, []interface{}{t.Title, status})
	}
	if err := setRows(f, summarySheet, 1, rows); err != nil {
		return err
	}
	return f.SetColWidth(summarySheet, "A", "B", 28)
}

func writeTable(f *excelize.File, sheet string, t dashboard.Table) error {
	if err := f.SetCellValue(sheet, "A1", t.Title); err != nil {
		return err
	}
	if t.Placeholder() {
		return setRows(f, sheet, 3, [][]interface{}{{"No data"}, {t.Error}})
	}

	switch t.Kind {
	case dashboard.KindPie:
		return countSheet(f, sheet, t, excelize.Pie)
	case dashboard.KindBar:
		if len(t.Series) > 0 {
			return meanSheet(f, sheet, t)
		}
		return countSheet(f, sheet, t, excelize.Col)
	case dashboard.KindHistogram:
		return histogramSheet(f, sheet, t)
	case dashboard.KindBox:
		return summarySheetRows(f, sheet, t)
	case dashboard.KindHeatmap:
		return matrixSheet(f, sheet, t)
	}
	return fmt.Errorf("unknown chart kind %q", t.Kind)
}

func countSheet(f *excelize.File, sheet string, t dashboard.Table, chartType excelize.ChartType) error {
	rows := [][]interface{}{{"Category", "Count"}}
	for i, c := range t.Categories {
		rows = append(rows, []interface{}{c, t.Counts[i]})
	}
	if err := setRows(f, sheet, 2, rows); err != nil {
		return err
	}
	last := len(t.Categories) + 2
	return addChart(f, sheet, t.Title, chartType, []excelize.ChartSeries{{
		Name:       fmt.Sprintf("%s!$B$2", quote(sheet)),
		Categories: fmt.Sprintf("%s!$A$3:$A$%d", quote(sheet), last),
		Values:     fmt.Sprintf("%s!$B$3:$B$%d", quote(sheet), last),
	}})
}

func meanSheet(f *excelize.File, sheet string, t dashboard.Table) error {
	header := []interface{}{"Category"}
	for _, s := range t.Series {
		header = append(header, s.Field)
	}
	rows := [][]interface{}{header}
	for i, c := range t.Categories {
		row := []interface{}{c}
		for _, s := range t.Series {
			if v := s.Values[i]; v != nil {
				row = append(row, *v)
			} else {
				row = append(row, nil)
			}
		}
		rows = append(rows, row)
	}
	if err := setRows(f, sheet, 2, rows); err != nil {
		return err
	}

	last := len(t.Categories) + 2
	series := make([]excelize.ChartSeries, len(t.Series))
	for i := range t.Series {
		col, err := excelize.ColumnNumberToName(i + 2)
		if err != nil {
			return err
		}
		series[i] = excelize.ChartSeries{
			Name:       fmt.Sprintf("%s!$%s$2", quote(sheet), col),
			Categories: fmt.Sprintf("%s!$A$3:$A$%d", quote(sheet), last),
			Values:     fmt.Sprintf("%s!$%s$3:$%s$%d", quote(sheet), col, col, last),
		}
	}
	return addChart(f, sheet, t.Title, excelize.Col, series)
}

func histogramSheet(f *excelize.File, sheet string, t dashboard.Table) error {
	h := t.Histogram
	if h == nil {
		return nil
	}
	rows := [][]interface{}{{"Bin", "Lower", "Upper", "Count"}}
	for _, b := range h.Bins {
		rows = append(rows, []interface{}{fmt.Sprintf("%.2f-%.2f", b.Lower, b.Upper), b.Lower, b.Upper, b.Count})
	}
	rows = append(rows, []interface{}{"Total", nil, nil, h.Total})
	if err := setRows(f, sheet, 2, rows); err != nil {
		return err
	}
	last := len(h.Bins) + 2
	return addChart(f, sheet, t.Title, excelize.Col, []excelize.ChartSeries{{
		Name:       fmt.Sprintf("%s!$D$2", quote(sheet)),
		Categories: fmt.Sprintf("%s!$A$3:$A$%d", quote(sheet), last),
		Values:     fmt.Sprintf("%s!$D$3:$D$%d", quote(sheet), last),
	}})
}

// summarySheetRows writes box plot statistics; excelize has no box chart.
func summarySheetRows(f *excelize.File, sheet string, t dashboard.Table) error {
	rows := [][]interface{}{{"Category", "Count", "Mean", "Min", "Q1", "Median", "Q3", "Max"}}
	for _, cs := range t.Summaries {
		s := cs.Summary
		rows = append(rows, []interface{}{cs.Category, s.Count, s.Mean, s.Min, s.Q1, s.Median, s.Q3, s.Max})
	}
	return setRows(f, sheet, 2, rows)
}

func matrixSheet(f *excelize.File, sheet string, t dashboard.Table) error {
	m := t.Matrix
	if m == nil {
		return nil
	}
	header := []interface{}{""}
	for _, field := range m.Fields {
		header = append(header, field)
	}
	rows := [][]interface{}{header}
	for i, field := range m.Fields {
		row := []interface{}{field}
		for _, v := range m.Values[i] {
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	rows = append(rows, []interface{}{"Pairs", m.Pairs})
	if err := setRows(f, sheet, 2, rows); err != nil {
		return err
	}

	topLeft, err := excelize.CoordinatesToCellName(2, 3)
	if err != nil {
		return err
	}
	bottomRight, err := excelize.CoordinatesToCellName(len(m.Fields)+1, len(m.Fields)+2)
	if err != nil {
		return err
	}
	return f.SetConditionalFormat(sheet, topLeft+":"+bottomRight, []excelize.ConditionalFormatOptions{{
		Type:     "3_color_scale",
		Criteria: "=",
		MinType:  "num",
		MinValue: "-1",
		MinColor: "#5A8AC6",
		MidType:  "num",
		MidValue: "0",
		MidColor: "#FFFFFF",
		MaxType:  "num",
		MaxValue: "1",
		MaxColor: "#F8696B",
	}})
}

func addChart(f *excelize.File, sheet, title string, chartType excelize.ChartType, series []excelize.ChartSeries) error {
	return f.AddChart(sheet, chartAnchor, &excelize.Chart{
		Type:      chartType,
		Series:    series,
		Title:     []excelize.RichTextRun{{Text: title}},
		Dimension: excelize.ChartDimension{Width: chartWidthPx, Height: chartHeightPx},
		Legend:    excelize.ChartLegend{Position: "bottom"},
	})
}

func setRows(f *excelize.File, sheet string, startRow int, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, startRow+i)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func quote(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
