package exporter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"servicepulse/internal/dataprocessing"
	"servicepulse/pkg/contracts/domain"
)

func normalizedTable() *domain.Table {
	raw := domain.NewTable("student_name", "tutor_name", "team_name", "course", "status", "completed_date")
	add := func(cells ...string) {
		rec := domain.Record{}
		for i, c := range raw.Columns {
			if cells[i] == "" {
				rec[c] = domain.Null()
			} else {
				rec[c] = domain.Text(cells[i])
			}
		}
		raw.Append(rec)
	}
	add("Asha", "Ravi", "Blue", "Python", "Started", "2024-01-20")
	add("Bala", "Ravi", "Blue", "Python", "yes", "")
	add("Chitra", "Meera", "Red", "Java", "not started", "")
	return dataprocessing.Normalize(raw, dataprocessing.StrictClassifier)
}

func openWorkbook(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestBuildWorkbook(t *testing.T) {
	tbl := normalizedTable()
	summary := dataprocessing.Summarize(tbl)

	data, err := BuildWorkbook(tbl, summary, dataprocessing.Breakdowns(tbl)...)
	require.NoError(t, err)

	f := openWorkbook(t, data)
	assert.Equal(t,
		[]string{SheetSummary, SheetRawData, "Tutor Performance", "Team Performance", "Course Analysis"},
		f.GetSheetList())

	rows, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Metric", "Value"},
		{"Total Students", "3"},
		{"Started", "2"},
		{"Not Started", "1"},
		{"Completed", "1"},
		{"In Progress", "1"},
		{"Start Rate %", "66.7"},
		{"Completion Rate %", "33.3"},
	}, rows)

	raw, err := f.GetRows(SheetRawData)
	require.NoError(t, err)
	require.Len(t, raw, 4)
	assert.Equal(t, tbl.Columns, raw[0])
	assert.Equal(t, "Asha", raw[1][0])

	tutor, err := f.GetRows("Tutor Performance")
	require.NoError(t, err)
	assert.Equal(t, []string{"Tutor", "Total_Students", "Started", "Completed", "In_Progress", "Start_Rate_%", "Completion_Rate_%"}, tutor[0])
	assert.Equal(t, []string{"Ravi", "2", "2", "1", "1", "100", "50"}, tutor[1])
}

func TestBuildWorkbook_HeaderStyle(t *testing.T) {
	tbl := normalizedTable()
	data, err := BuildWorkbook(tbl, dataprocessing.Summarize(tbl))
	require.NoError(t, err)

	f := openWorkbook(t, data)
	styleID, err := f.GetCellStyle(SheetSummary, "A1")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)

	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
	assert.Equal(t, 12.0, style.Font.Size)
	assert.True(t, strings.HasSuffix(strings.ToUpper(style.Font.Color), "FFFFFF"), style.Font.Color)
	require.NotEmpty(t, style.Fill.Color)
	assert.True(t, strings.HasSuffix(strings.ToUpper(style.Fill.Color[0]), "4F81BD"), style.Fill.Color[0])
	require.NotNil(t, style.Alignment)
	assert.Equal(t, "center", style.Alignment.Horizontal)
	assert.Len(t, style.Border, 4)
}

func TestBuildWorkbook_EmptyInputs(t *testing.T) {
	empty := domain.NewTable("Status")
	data, err := BuildWorkbook(empty, domain.KPISummary{},
		dataprocessing.BreakdownBy(empty, domain.BreakdownTutor),
		dataprocessing.BreakdownBy(empty, domain.BreakdownTeam))
	require.NoError(t, err)

	f := openWorkbook(t, data)
	assert.Equal(t, []string{SheetSummary}, f.GetSheetList())

	rows, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Len(t, rows, 8)
	assert.Equal(t, []string{"Total Students", "0"}, rows[1])
}

func TestBuildWorkbook_SkipsEmptyBreakdown(t *testing.T) {
	raw := domain.NewTable("status", "tutor_name")
	raw.Append(domain.Record{"status": domain.Text("yes"), "tutor_name": domain.Text("Ravi")})
	tbl := dataprocessing.Normalize(raw, dataprocessing.StrictClassifier)

	data, err := BuildWorkbook(tbl, dataprocessing.Summarize(tbl), dataprocessing.Breakdowns(tbl)...)
	require.NoError(t, err)

	f := openWorkbook(t, data)
	assert.Equal(t, []string{SheetSummary, SheetRawData, "Tutor Performance"}, f.GetSheetList())
}
