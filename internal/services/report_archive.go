package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"servicepulse/internal/exporter"
	"servicepulse/internal/files"
)

// ReportExporter renders the exports of the current view
type ReportExporter interface {
	ExportCSV(ctx context.Context) (*Export, error)
	ExportWorkbook(ctx context.Context) (*Export, error)
}

// ReportArchive saves exports into the export directory and serves them back
type ReportArchive struct {
	exports   ReportExporter
	writer    *exporter.FileWriter
	discovery *files.Discovery
	logger    *slog.Logger
}

// NewReportArchive creates an archive over dir
func NewReportArchive(exports ReportExporter, dir string, logger *slog.Logger) *ReportArchive {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "report_archive"))
	return &ReportArchive{
		exports:   exports,
		writer:    exporter.NewFileWriter(dir, logger),
		discovery: files.NewDiscovery(dir, logger),
		logger:    logger,
	}
}

// Save writes the requested kinds of the current view, both when none are
// given, and returns the saved files
func (a *ReportArchive) Save(ctx context.Context, kinds ...files.Kind) ([]files.FileInfo, error) {
	if len(kinds) == 0 {
		kinds = []files.Kind{files.KindWorkbook, files.KindCSV}
	}

	saved := make([]files.FileInfo, 0, len(kinds))
	for _, kind := range kinds {
		var (
			export *Export
			err    error
		)
		switch kind {
		case files.KindWorkbook:
			export, err = a.exports.ExportWorkbook(ctx)
		case files.KindCSV:
			export, err = a.exports.ExportCSV(ctx)
		default:
			err = fmt.Errorf("unknown report kind %q", kind)
		}
		if err != nil {
			return nil, err
		}

		if _, err := a.writer.WriteFile(export.FileName, export.Data); err != nil {
			a.logger.ErrorContext(ctx, "report save failed",
				slog.String("name", export.FileName),
				slog.String("error", err.Error()))
			return nil, err
		}
		info, err := a.discovery.Lookup(export.FileName)
		if err != nil {
			return nil, err
		}
		saved = append(saved, info)
	}

	a.logger.InfoContext(ctx, "reports saved", slog.Int("count", len(saved)))
	return saved, nil
}

// List returns the saved reports, newest first
func (a *ReportArchive) List(ctx context.Context) ([]files.FileInfo, error) {
	reports, err := a.discovery.FindReports()
	if err != nil {
		a.logger.ErrorContext(ctx, "report listing failed", slog.String("error", err.Error()))
		return nil, err
	}
	return reports, nil
}

// Open reads a saved report by file name
func (a *ReportArchive) Open(ctx context.Context, name string) (*Export, error) {
	info, err := a.discovery.Lookup(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(info.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report %s: %w", name, err)
	}

	contentType := ContentTypeCSV
	if info.Kind == files.KindWorkbook {
		contentType = ContentTypeXLSX
	}
	a.logger.DebugContext(ctx, "report opened", slog.String("name", name))
	return &Export{FileName: info.Name, ContentType: contentType, Data: data}, nil
}
