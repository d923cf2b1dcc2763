package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	apperrors "servicepulse/internal/errors"
	"servicepulse/pkg/contracts/domain"
)

// SheetsConfig identifies a sheet range and how to authenticate to it
type SheetsConfig struct {
	SpreadsheetID   string
	Range           string
	APIKey          string
	CredentialsFile string
}

// SheetsSource reads enrollments straight from a Google Sheet
type SheetsSource struct {
	service *sheets.Service
	cfg     SheetsConfig
	logger  *slog.Logger
}

// NewSheetsSource creates the Sheets client. Extra options are appended after
// the credentials derived from cfg.
func NewSheetsSource(ctx context.Context, cfg SheetsConfig, logger *slog.Logger, opts ...option.ClientOption) (*SheetsSource, error) {
	if cfg.SpreadsheetID == "" {
		return nil, apperrors.NewConfigError("No spreadsheet ID is configured", nil)
	}
	if cfg.Range == "" {
		cfg.Range = "Sheet1"
	}
	if logger == nil {
		logger = slog.Default()
	}

	var clientOpts []option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		credentialsJSON, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, apperrors.NewConfigError("Cannot read Sheets credentials file", err)
		}
		clientOpts = append(clientOpts, option.WithCredentialsJSON(credentialsJSON))
	case cfg.APIKey != "":
		clientOpts = append(clientOpts, option.WithAPIKey(cfg.APIKey))
	}
	clientOpts = append(clientOpts, opts...)

	service, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, apperrors.NewConfigError("Failed to create Google Sheets service", err)
	}

	return &SheetsSource{
		service: service,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "sheets_source")),
	}, nil
}

// Name implements Source
func (s *SheetsSource) Name() string {
	return "google_sheets"
}

// Fetch reads the configured range; the first row is the header
func (s *SheetsSource) Fetch(ctx context.Context) (*domain.Table, error) {
	start := time.Now()
	resp, err := s.service.Spreadsheets.Values.Get(s.cfg.SpreadsheetID, s.cfg.Range).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		s.logger.WarnContext(ctx, "sheets read failed",
			slog.String("spreadsheet_id", s.cfg.SpreadsheetID),
			slog.String("range", s.cfg.Range),
			slog.String("error", err.Error()))
		return nil, apperrors.NewNetworkError(fmt.Sprintf("Failed to read from sheets: %v", err), err)
	}

	if len(resp.Values) == 0 {
		return nil, apperrors.NewParsingError("Sheet range is empty", nil).
			WithContext("range", s.cfg.Range)
	}

	header := stringsOf(resp.Values[0])
	body := make([][]string, 0, len(resp.Values)-1)
	for _, row := range resp.Values[1:] {
		cells := stringsOf(row)
		if len(cells) > len(header) {
			cells = cells[:len(header)]
		}
		body = append(body, cells)
	}

	t, err := rowsToTable(header, body, 2)
	if err != nil {
		return nil, apperrors.NewParsingError(err.Error(), err)
	}

	s.logger.InfoContext(ctx, "sheet fetched",
		slog.String("range", s.cfg.Range),
		slog.Int("rows", t.Len()),
		slog.Duration("duration", time.Since(start)))
	return t, nil
}

func stringsOf(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		if v != nil {
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}
