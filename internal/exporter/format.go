package exporter

import (
	"fmt"
	"time"

	"servicepulse/internal/config"
)

// CSVFileName is the download name of the CSV export taken at t
func CSVFileName(t time.Time) string {
	return fmt.Sprintf(config.CSVExportPattern, t.Format(config.ExportDateLayout))
}

// ReportFileName is the download name of the XLSX report taken at t
func ReportFileName(t time.Time) string {
	return fmt.Sprintf(config.ReportExportPattern, t.Format(config.ExportDateLayout))
}

// FormatRate renders a percentage with one decimal place
func FormatRate(f float64) string {
	return fmt.Sprintf("%.1f%%", f)
}

// FormatCell renders a typed breakdown cell for text output
func FormatCell(v interface{}) string {
	switch x := v.(type) {
	case float64:
		return fmt.Sprintf("%.1f", x)
	case int:
		return fmt.Sprintf("%d", x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
