package services

import (
	"context"
	"log/slog"
	"strings"

	"servicepulse/internal/config"
	apperrors "servicepulse/internal/errors"
	"servicepulse/internal/ingest"
	"servicepulse/internal/session"
)

// SourceFactory builds the remote source for a session source configuration
type SourceFactory interface {
	SourceFor(ctx context.Context, src session.SourceConfig) (ingest.Source, error)
}

// ConfiguredSources builds sources from the process configuration
type ConfiguredSources struct {
	cfg    config.SourceConfig
	logger *slog.Logger
}

// NewConfiguredSources creates a factory over cfg
func NewConfiguredSources(cfg config.SourceConfig, logger *slog.Logger) *ConfiguredSources {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfiguredSources{cfg: cfg, logger: logger}
}

// DefaultSource is the source a fresh session starts with
func (f *ConfiguredSources) DefaultSource() session.SourceConfig {
	switch {
	case f.cfg.AppsScriptURL != "":
		return session.SourceConfig{Kind: session.SourceAppsScript, URL: f.cfg.AppsScriptURL}
	case f.cfg.SheetID != "":
		return session.SourceConfig{Kind: session.SourceSheets}
	default:
		return session.SourceConfig{}
	}
}

// SourceFor implements SourceFactory
func (f *ConfiguredSources) SourceFor(ctx context.Context, src session.SourceConfig) (ingest.Source, error) {
	switch src.Kind {
	case session.SourceSheets:
		return ingest.NewSheetsSource(ctx, ingest.SheetsConfig{
			SpreadsheetID:   f.cfg.SheetID,
			Range:           f.cfg.SheetRange,
			APIKey:          f.cfg.SheetsAPIKey,
			CredentialsFile: f.cfg.CredentialsFile,
		}, f.logger)

	case session.SourceAppsScript, session.SourceFile, session.SourceNone:
		endpoint := strings.TrimSpace(src.URL)
		if endpoint == "" {
			return nil, ErrSourceNotConfigured
		}
		if err := config.ValidateSourceURL(endpoint); err != nil {
			return nil, apperrors.NewConfigError(err.Error(), err)
		}
		return ingest.NewAppsScriptSource(endpoint, f.cfg.FetchTimeout, f.logger), nil

	default:
		return nil, apperrors.NewAppValidationError("Unknown source kind " + string(src.Kind))
	}
}
