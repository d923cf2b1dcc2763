// Package exporter writes dashboard data out as files.
//
// BuildWorkbook assembles the multi-sheet XLSX report: an executive summary,
// the normalized raw data and one sheet per non-empty breakdown. WriteCSV
// emits the current table as CSV. FileWriter places either under the
// configured output directory for the command line tools.
//
// Example usage:
//
//	data, err := exporter.BuildWorkbook(table, summary, tutor, team, course)
//	if err != nil {
//		return err
//	}
//	path, err := exporter.NewFileWriter("reports", logger).
//		WriteFile(exporter.ReportFileName(time.Now()), data)
package exporter
