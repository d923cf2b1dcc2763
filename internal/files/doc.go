// Package files discovers the reports saved in the export directory.
//
// Saved reports are named after config.CSVExportPattern and
// config.ReportExportPattern, so the report date and kind are recovered from
// the file name alone. Lookups only accept names of that shape, which keeps
// downloads inside the export directory.
//
// Example usage:
//
//	discovery := files.NewDiscovery(cfg.Export.OutputDir, logger)
//	reports, err := discovery.FindReports()
//	latest, ok := files.GetLatestFile(reports)
package files
