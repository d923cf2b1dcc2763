package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/olekukonko/tablewriter"

	"servicepulse/internal/config"
	"servicepulse/internal/dataprocessing"
	apperrors "servicepulse/internal/errors"
	"servicepulse/internal/exporter"
	"servicepulse/internal/files"
	"servicepulse/internal/infrastructure"
	"servicepulse/internal/services"
	"servicepulse/internal/session"
	"servicepulse/internal/validation"
	"servicepulse/pkg/contracts/domain"
)

// options are the parsed command line flags
type options struct {
	configFile string
	file       string
	url        string
	sheetID    string
	sheetRange string
	month      string
	policy     string
	outDir     string
	writeXLSX  bool
	writeCSV   bool
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "pulse-report: %s\n", apperrors.UserMessage(err))
		}
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("pulse-report", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.StringVar(&opts.configFile, "config", "", "path to a YAML config file")
	fs.StringVar(&opts.file, "file", "", "CSV or XLSX export to load")
	fs.StringVar(&opts.url, "url", "", "Apps Script web app URL answering ?action=getData")
	fs.StringVar(&opts.sheetID, "sheet", "", "Google Sheets spreadsheet ID")
	fs.StringVar(&opts.sheetRange, "range", "", "Google Sheets range (default from config)")
	fs.StringVar(&opts.month, "month", "", "restrict the report to one Month value")
	fs.StringVar(&opts.policy, "policy", "", "status classifier: strict or loose")
	fs.StringVar(&opts.outDir, "out", "", "directory for written reports (default from config)")
	fs.BoolVar(&opts.writeXLSX, "xlsx", false, "write the workbook report to -out")
	fs.BoolVar(&opts.writeCSV, "csv", false, "write the filtered rows as CSV to -out")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	sources := 0
	for _, s := range []string{opts.file, opts.url, opts.sheetID} {
		if s != "" {
			sources++
		}
	}
	if sources > 1 {
		return nil, fmt.Errorf("use only one of -file, -url and -sheet")
	}
	return opts, nil
}

// loadConfig layers flags over the config file and environment
func loadConfig(opts *options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configFile != "" {
		cfg, err = config.LoadFrom(opts.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if opts.sheetID != "" {
		cfg.Source.SheetID = opts.sheetID
	}
	if opts.sheetRange != "" {
		cfg.Source.SheetRange = opts.sheetRange
	}
	if opts.policy != "" {
		cfg.Source.StatusPolicy = opts.policy
	}
	if opts.outDir != "" {
		cfg.Export.OutputDir = opts.outDir
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger := infrastructure.NewLogger(stderr, opts.logLevel)
	svc, err := services.NewDashboardService(cfg, logger)
	if err != nil {
		return err
	}

	if err := load(ctx, svc, opts, cfg, logger); err != nil {
		return err
	}

	if opts.month != "" {
		if _, err := svc.SetFilter(ctx, opts.month); err != nil {
			return err
		}
	}

	ov, err := svc.Overview(ctx)
	if err != nil {
		return err
	}
	printReport(stdout, ov)

	if !opts.writeXLSX && !opts.writeCSV {
		return nil
	}
	return writeReports(ctx, svc, cfg.Export.OutputDir, opts, stdout, logger)
}

// load reads the table from the file, URL or sheet flag, falling back to the configured source
func load(ctx context.Context, svc *services.DashboardService, opts *options, cfg *config.Config, logger *slog.Logger) error {
	switch {
	case opts.file != "":
		v := validation.NewFileValidator(logger)
		if _, err := v.ValidateInputFile(opts.file, cfg.Export.MaxUploadBytes); err != nil {
			return err
		}
		f, err := os.Open(opts.file)
		if err != nil {
			return err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return err
		}
		_, err = svc.Upload(ctx, filepath.Base(opts.file), f, info.Size())
		return err

	case opts.url != "":
		if _, err := svc.Configure(ctx, session.SourceConfig{Kind: session.SourceAppsScript, URL: opts.url}); err != nil {
			return err
		}

	case opts.sheetID != "":
		if _, err := svc.Configure(ctx, session.SourceConfig{Kind: session.SourceSheets}); err != nil {
			return err
		}
	}

	_, err := svc.Fetch(ctx)
	return err
}

// printReport writes the KPI table and each non-empty breakdown
func printReport(w io.Writer, ov *services.Overview) {
	title := dataprocessing.AllTime
	if !ov.Filter.All() {
		title = ov.Filter.Month
	}
	fmt.Fprintf(w, "Enrollment summary (%s)\n", title)

	if ov.Summary.Empty() {
		fmt.Fprintln(w, "No records match the selected filter.")
		return
	}

	kpi := tablewriter.NewWriter(w)
	kpi.SetHeader([]string{"Metric", "Value"})
	kpi.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, m := range ov.Summary.Metrics() {
		value := exporter.FormatCell(m.Value)
		if f, ok := m.Value.(float64); ok {
			value = exporter.FormatRate(f)
		}
		kpi.Append([]string{m.Label, value})
	}
	kpi.Append([]string{"Top Tutor", ov.Summary.TopTutor})
	kpi.Append([]string{"Top Team", ov.Summary.TopTeam})
	kpi.Append([]string{"Top Course", ov.Summary.TopCourse})
	kpi.Render()

	for _, b := range ov.Breakdowns {
		if b.Empty() {
			continue
		}
		printBreakdown(w, b)
	}
}

func printBreakdown(w io.Writer, b domain.GroupBreakdown) {
	fmt.Fprintf(w, "\n%s\n", b.Key.Title())
	table := tablewriter.NewWriter(w)
	table.SetHeader(b.Headers())
	for i := range b.Rows {
		values := b.Values(i)
		row := make([]string, len(values))
		for j, v := range values {
			row[j] = exporter.FormatCell(v)
		}
		table.Append(row)
	}
	table.Render()
}

// writeReports saves the requested exports under dir
func writeReports(ctx context.Context, svc *services.DashboardService, dir string, opts *options, stdout io.Writer, logger *slog.Logger) error {
	if err := validation.NewFileValidator(logger).ValidateOutputDirectory(dir); err != nil {
		return err
	}

	var kinds []files.Kind
	if opts.writeXLSX {
		kinds = append(kinds, files.KindWorkbook)
	}
	if opts.writeCSV {
		kinds = append(kinds, files.KindCSV)
	}

	saved, err := services.NewReportArchive(svc, dir, logger).Save(ctx, kinds...)
	if err != nil {
		return err
	}
	for _, f := range saved {
		fmt.Fprintf(stdout, "\nWrote %s\n", f.Path)
	}
	return nil
}
