package http

import (
	"context"
	"io"

	"servicepulse/internal/services"
	"servicepulse/internal/session"
	"servicepulse/pkg/contracts/domain"
)

// DashboardServiceInterface defines the dashboard operations the handlers use
type DashboardServiceInterface interface {
	MaxUploadBytes() int64
	Source(ctx context.Context) session.SourceConfig
	Configure(ctx context.Context, src session.SourceConfig) (session.SourceConfig, error)
	Fetch(ctx context.Context) (*services.LoadResult, error)
	Upload(ctx context.Context, name string, r io.Reader, size int64) (*services.LoadResult, error)
	Clear(ctx context.Context) session.State
	SetFilter(ctx context.Context, month string) (session.Filter, error)

	Summary(ctx context.Context) (domain.KPISummary, error)
	Breakdown(ctx context.Context, key string) (domain.GroupBreakdown, error)
	Months(ctx context.Context) ([]string, error)
	Records(ctx context.Context, offset, limit int) (*services.RecordsPage, error)
	Overview(ctx context.Context) (*services.Overview, error)

	ExportCSV(ctx context.Context) (*services.Export, error)
	ExportWorkbook(ctx context.Context) (*services.Export, error)
}

var _ DashboardServiceInterface = (*services.DashboardService)(nil)
