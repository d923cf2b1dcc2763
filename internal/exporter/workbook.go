package exporter

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"servicepulse/pkg/contracts/domain"
)

// Sheet names of the report workbook
const (
	SheetSummary = "Executive Summary"
	SheetRawData = "Raw Data"

	defaultSheet = "Sheet1"
)

// BuildWorkbook renders the report as XLSX bytes. The raw data sheet is only
// written when the table has rows; empty breakdowns are omitted.
func BuildWorkbook(t *domain.Table, summary domain.KPISummary, breakdowns ...domain.GroupBreakdown) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	header, err := headerStyle(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeSummarySheet(f, summary, header); err != nil {
		return nil, err
	}
	if !t.Empty() {
		if err := writeSheet(f, SheetRawData, t.Columns, cellsOf(t), header); err != nil {
			return nil, err
		}
	}
	for _, b := range breakdowns {
		if b.Empty() {
			continue
		}
		rows := make([][]interface{}, len(b.Rows))
		for i := range b.Rows {
			rows[i] = b.Values(i)
		}
		if err := writeSheet(f, b.Key.Title(), b.Headers(), rows, header); err != nil {
			return nil, err
		}
	}

	if err := f.DeleteSheet(defaultSheet); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}
	if idx, err := f.GetSheetIndex(SheetSummary); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func headerStyle(f *excelize.File) (int, error) {
	border := func(side string) excelize.Border {
		return excelize.Border{Type: side, Color: "000000", Style: 1}
	}
	return f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    []excelize.Border{border("left"), border("top"), border("right"), border("bottom")},
	})
}

func writeSummarySheet(f *excelize.File, summary domain.KPISummary, header int) error {
	metrics := summary.Metrics()
	rows := make([][]interface{}, len(metrics))
	for i, m := range metrics {
		rows[i] = []interface{}{m.Label, m.Value}
	}
	return writeSheet(f, SheetSummary, []string{"Metric", "Value"}, rows, header)
}

// writeSheet creates sheet with a styled header row followed by rows
func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]interface{}, style int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %q: %w", sheet, err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet %q: %w", sheet, err)
	}

	headerCells := make([]interface{}, len(headers))
	for i, h := range headers {
		headerCells[i] = excelize.Cell{StyleID: style, Value: h}
		if err := sw.SetColWidth(i+1, i+1, columnWidth(h)); err != nil {
			return err
		}
	}
	if err := sw.SetRow("A1", headerCells); err != nil {
		return fmt.Errorf("failed to write header of %q: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write row %d of %q: %w", i+1, sheet, err)
		}
	}
	return sw.Flush()
}

// cellsOf renders table rows as cells; null cells stay empty
func cellsOf(t *domain.Table) [][]interface{} {
	out := make([][]interface{}, len(t.Rows))
	for i, r := range t.Rows {
		row := make([]interface{}, len(t.Columns))
		for j, c := range t.Columns {
			if v := r[c]; !v.Null {
				row[j] = v.Text
			}
		}
		out[i] = row
	}
	return out
}

// columnWidth sizes a column to its header, never narrower than minColumnWidth
func columnWidth(header string) float64 {
	const minColumnWidth = 12
	w := float64(len([]rune(header)) + 4)
	if w < minColumnWidth {
		return minColumnWidth
	}
	return w
}
