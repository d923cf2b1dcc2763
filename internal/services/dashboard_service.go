package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"servicepulse/internal/config"
	"servicepulse/internal/dataprocessing"
	apperrors "servicepulse/internal/errors"
	"servicepulse/internal/exporter"
	"servicepulse/internal/infrastructure"
	"servicepulse/internal/ingest"
	"servicepulse/internal/session"
	"servicepulse/pkg/contracts/domain"
)

// Content types of the exports
const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Pipeline stage names used for spans and the stage duration metric
const (
	stageFetch     = "fetch"
	stageParse     = "parse"
	stageNormalize = "normalize"
	stageAggregate = "aggregate"
	stageExport    = "export"
)

// LoadResult describes a successful fetch or upload
type LoadResult struct {
	Load    session.Load `json:"load"`
	Columns []string     `json:"columns"`
	Months  []string     `json:"months"`
}

// RecordsPage is a window over the current view
type RecordsPage struct {
	Columns []string                 `json:"columns"`
	Rows    []map[string]interface{} `json:"rows"`
	Total   int                      `json:"total"`
	Offset  int                      `json:"offset"`
	Limit   int                      `json:"limit"`
}

// Export is a rendered download
type Export struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Overview is everything the dashboard page renders
type Overview struct {
	HasData      bool                    `json:"has_data"`
	Source       session.SourceConfig    `json:"source"`
	Load         *session.Load           `json:"load,omitempty"`
	Filter       session.Filter          `json:"filter"`
	Months       []string                `json:"months"`
	Summary      domain.KPISummary       `json:"summary"`
	Breakdowns   []domain.GroupBreakdown `json:"breakdowns"`
	StatusMix    []domain.CountEntry     `json:"status_distribution"`
	CompletedMix []domain.CountEntry     `json:"completion_distribution"`
}

// DashboardService runs the load, normalize, aggregate and export pipeline
// over the session store
type DashboardService struct {
	store      *session.Store
	sources    SourceFactory
	normalizer *dataprocessing.Normalizer
	metrics    *infrastructure.PipelineMetrics
	tracer     trace.Tracer
	maxUpload  int64
	timeout    time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// DashboardOption customizes a DashboardService
type DashboardOption func(*DashboardService)

// WithStore shares an existing session store
func WithStore(store *session.Store) DashboardOption {
	return func(s *DashboardService) { s.store = store }
}

// WithSourceFactory replaces how remote sources are built
func WithSourceFactory(f SourceFactory) DashboardOption {
	return func(s *DashboardService) { s.sources = f }
}

// WithMetrics records pipeline metrics
func WithMetrics(m *infrastructure.PipelineMetrics) DashboardOption {
	return func(s *DashboardService) { s.metrics = m }
}

// WithTracer wraps pipeline stages in spans
func WithTracer(t trace.Tracer) DashboardOption {
	return func(s *DashboardService) { s.tracer = t }
}

// WithClock replaces time.Now for load stamps and export names
func WithClock(now func() time.Time) DashboardOption {
	return func(s *DashboardService) { s.now = now }
}

// NewDashboardService creates the service from configuration
func NewDashboardService(cfg *config.Config, logger *slog.Logger, opts ...DashboardOption) (*DashboardService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "dashboard_service"))

	classifier, err := dataprocessing.ClassifierFor(cfg.Source.StatusPolicy)
	if err != nil {
		return nil, fmt.Errorf("invalid status policy: %w", err)
	}

	configured := NewConfiguredSources(cfg.Source, logger)
	s := &DashboardService{
		sources:    configured,
		normalizer: dataprocessing.NewNormalizer(classifier, logger),
		tracer:     noop.NewTracerProvider().Tracer(infrastructure.ServiceName),
		maxUpload:  cfg.Export.MaxUploadBytes,
		timeout:    cfg.Source.FetchTimeout,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = session.NewStore(session.State{Source: configured.DefaultSource()})
	}
	if s.maxUpload <= 0 {
		s.maxUpload = config.DefaultMaxUploadBytes
	}
	if s.timeout <= 0 {
		s.timeout = config.DefaultFetchTimeout
	}

	logger.Info("dashboard service initialized",
		slog.String("status_policy", classifier.Name),
		slog.String("source_kind", string(s.store.Snapshot().Source.Kind)),
		slog.Int64("max_upload_bytes", s.maxUpload))
	return s, nil
}

// MaxUploadBytes is the largest accepted upload
func (s *DashboardService) MaxUploadBytes() int64 {
	return s.maxUpload
}

// Source returns the configured source
func (s *DashboardService) Source(ctx context.Context) session.SourceConfig {
	return s.store.Snapshot().Source
}

// Configure sets the remote source used by Fetch. The loaded table is kept.
func (s *DashboardService) Configure(ctx context.Context, src session.SourceConfig) (session.SourceConfig, error) {
	src.URL = strings.TrimSpace(src.URL)
	if src.Kind == session.SourceNone {
		src.Kind = session.SourceAppsScript
	}
	if src.Kind == session.SourceAppsScript {
		if err := config.ValidateSourceURL(src.URL); err != nil {
			return session.SourceConfig{}, apperrors.NewAppValidationError(err.Error())
		}
	}

	next := s.store.Update(func(st session.State) session.State {
		return st.WithSource(src)
	})
	s.logger.InfoContext(ctx, "source configured",
		slog.String("kind", string(src.Kind)),
		slog.String("url", src.URL))
	return next.Source, nil
}

// Fetch loads the table from the configured remote source
func (s *DashboardService) Fetch(ctx context.Context) (*LoadResult, error) {
	src := s.store.Snapshot().Source
	source, err := s.sources.SourceFor(ctx, src)
	if err != nil {
		s.logger.WarnContext(ctx, "fetch rejected", slog.String("error", err.Error()))
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.load(ctx, session.Load{Source: session.SourceKind(source.Name())}, source.Fetch)
}

// Upload loads the table from an uploaded CSV or XLSX file
func (s *DashboardService) Upload(ctx context.Context, name string, r io.Reader, size int64) (*LoadResult, error) {
	if size > s.maxUpload {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrUploadTooLarge, size, s.maxUpload)
	}
	if _, err := ingest.DetectFormat(name); err != nil {
		return nil, err
	}

	limited := &limitedReader{r: r, remaining: s.maxUpload}
	return s.load(ctx, session.Load{Source: session.SourceFile, FileName: name}, func(ctx context.Context) (*domain.Table, error) {
		return ingest.ParseFile(name, limited)
	})
}

// load runs a fetch through normalization and stores the result together
// with the load metadata in a single state transition
func (s *DashboardService) load(ctx context.Context, load session.Load, fetch func(context.Context) (*domain.Table, error)) (*LoadResult, error) {
	kind := load.Source
	ctx, span := s.tracer.Start(ctx, "dashboard.load",
		trace.WithAttributes(attribute.String("source", string(kind))))
	defer span.End()

	start := s.now()
	fail := func(err error) (*LoadResult, error) {
		span.SetStatus(codes.Error, err.Error())
		infrastructure.RecordError(ctx, err)
		s.metrics.RecordLoad(ctx, string(kind), 0, time.Since(start), err)
		s.logger.WarnContext(ctx, "load failed",
			slog.String("source", string(kind)),
			slog.String("error", err.Error()))
		return nil, err
	}

	stage := stageFetch
	if kind == session.SourceFile {
		stage = stageParse
	}
	raw, err := s.stage(ctx, stage, fetch)
	if err != nil {
		return fail(err)
	}

	table, err := s.stage(ctx, stageNormalize, func(context.Context) (*domain.Table, error) {
		return s.normalizer.Normalize(raw), nil
	})
	if err != nil {
		return fail(err)
	}

	load.ID = uuid.NewString()
	load.Rows = table.Len()
	load.LoadedAt = s.now()
	s.store.Update(func(st session.State) session.State {
		return st.Loaded(table, load)
	})

	s.metrics.RecordLoad(ctx, string(kind), table.Len(), time.Since(start), nil)
	span.SetAttributes(attribute.Int("rows", table.Len()))
	s.logger.InfoContext(ctx, "data loaded",
		slog.String("load_id", load.ID),
		slog.String("source", string(kind)),
		slog.Int("rows", table.Len()),
		slog.Int("columns", len(table.Columns)))

	return &LoadResult{
		Load:    load,
		Columns: table.Columns,
		Months:  dataprocessing.MonthOptions(table),
	}, nil
}

// stage times fn under its own span and the stage duration metric
func (s *DashboardService) stage(ctx context.Context, name string, fn func(context.Context) (*domain.Table, error)) (*domain.Table, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard."+name)
	defer span.End()

	start := time.Now()
	t, err := fn(ctx)
	s.metrics.RecordStage(ctx, name, time.Since(start))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return t, err
}

// Clear drops the loaded table and filter
func (s *DashboardService) Clear(ctx context.Context) session.State {
	next := s.store.Update(session.State.Cleared)
	s.logger.InfoContext(ctx, "session cleared")
	return next
}

// SetFilter narrows the view to one month; AllTime or empty removes the filter
func (s *DashboardService) SetFilter(ctx context.Context, month string) (session.Filter, error) {
	next, err := s.store.Apply(func(st session.State) (session.State, error) {
		if !st.HasData() {
			return st, ErrNoDataLoaded
		}
		return st.WithFilter(session.Filter{Month: month}), nil
	})
	if err != nil {
		return session.Filter{}, err
	}
	s.logger.DebugContext(ctx, "filter set",
		slog.String("month", next.Filter.Month),
		slog.Int("rows", next.View().Len()))
	return next.Filter, nil
}

// view returns the current state and its filtered table
func (s *DashboardService) view() (session.State, *domain.Table, error) {
	st := s.store.Snapshot()
	if !st.HasData() {
		return st, nil, ErrNoDataLoaded
	}
	return st, st.View(), nil
}

// Summary computes the KPI summary of the current view
func (s *DashboardService) Summary(ctx context.Context) (domain.KPISummary, error) {
	_, t, err := s.view()
	if err != nil {
		return domain.KPISummary{}, err
	}
	start := time.Now()
	summary := dataprocessing.Summarize(t)
	s.metrics.RecordStage(ctx, stageAggregate, time.Since(start))
	return summary, nil
}

// Breakdown computes one grouped breakdown of the current view
func (s *DashboardService) Breakdown(ctx context.Context, key string) (domain.GroupBreakdown, error) {
	k, err := dataprocessing.ValidateKey(key)
	if err != nil {
		return domain.GroupBreakdown{}, err
	}
	_, t, err := s.view()
	if err != nil {
		return domain.GroupBreakdown{}, err
	}
	start := time.Now()
	b := dataprocessing.BreakdownBy(t, k)
	s.metrics.RecordStage(ctx, stageAggregate, time.Since(start))
	return b, nil
}

// Months lists the month filter choices of the loaded table, AllTime first
func (s *DashboardService) Months(ctx context.Context) ([]string, error) {
	st := s.store.Snapshot()
	if !st.HasData() {
		return nil, ErrNoDataLoaded
	}
	return dataprocessing.MonthOptions(st.Table), nil
}

// Records returns a page of the current view. A non-positive limit returns every row.
func (s *DashboardService) Records(ctx context.Context, offset, limit int) (*RecordsPage, error) {
	_, t, err := s.view()
	if err != nil {
		return nil, err
	}

	total := t.Len()
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	rows := make([]map[string]interface{}, 0, end-offset)
	for _, r := range t.Rows[offset:end] {
		row := make(map[string]interface{}, len(t.Columns))
		for _, c := range t.Columns {
			if v := r[c]; v.Null {
				row[c] = nil
			} else {
				row[c] = v.Text
			}
		}
		rows = append(rows, row)
	}

	return &RecordsPage{
		Columns: t.Columns,
		Rows:    rows,
		Total:   total,
		Offset:  offset,
		Limit:   limit,
	}, nil
}

// ExportCSV renders the current view as CSV
func (s *DashboardService) ExportCSV(ctx context.Context) (*Export, error) {
	_, t, err := s.view()
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "dashboard."+stageExport, trace.WithAttributes(attribute.String("format", "csv")))
	defer span.End()

	data, err := exporter.EncodeCSV(t)
	s.metrics.RecordExport(ctx, "csv", len(data), err)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &Export{
		FileName:    exporter.CSVFileName(s.now()),
		ContentType: ContentTypeCSV,
		Data:        data,
	}, nil
}

// ExportWorkbook renders the multi-sheet report of the current view
func (s *DashboardService) ExportWorkbook(ctx context.Context) (*Export, error) {
	_, t, err := s.view()
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "dashboard."+stageExport, trace.WithAttributes(attribute.String("format", "xlsx")))
	defer span.End()

	start := time.Now()
	data, err := exporter.BuildWorkbook(t, dataprocessing.Summarize(t), dataprocessing.Breakdowns(t)...)
	s.metrics.RecordStage(ctx, stageExport, time.Since(start))
	s.metrics.RecordExport(ctx, "xlsx", len(data), err)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.ErrorContext(ctx, "workbook export failed", slog.String("error", err.Error()))
		return nil, err
	}

	s.logger.InfoContext(ctx, "workbook exported",
		slog.Int("rows", t.Len()),
		slog.Int("bytes", len(data)))
	return &Export{
		FileName:    exporter.ReportFileName(s.now()),
		ContentType: ContentTypeXLSX,
		Data:        data,
	}, nil
}

// Overview assembles the dashboard page. With nothing loaded it reports
// HasData false rather than an error.
func (s *DashboardService) Overview(ctx context.Context) (*Overview, error) {
	st := s.store.Snapshot()
	o := &Overview{
		HasData:      st.HasData(),
		Source:       st.Source,
		Load:         st.Load,
		Filter:       st.Filter,
		Months:       dataprocessing.MonthOptions(st.Table),
		Breakdowns:   []domain.GroupBreakdown{},
		StatusMix:    []domain.CountEntry{},
		CompletedMix: []domain.CountEntry{},
	}
	if !o.HasData {
		return o, nil
	}

	start := time.Now()
	t := st.View()
	o.Summary = dataprocessing.Summarize(t)
	o.Breakdowns = dataprocessing.Breakdowns(t)
	o.StatusMix = dataprocessing.Distribution(t, domain.ColumnStatusClean)
	o.CompletedMix = dataprocessing.Distribution(t, domain.ColumnCompletionStatus)
	s.metrics.RecordStage(ctx, stageAggregate, time.Since(start))
	return o, nil
}

// limitedReader fails with ErrUploadTooLarge once more than remaining bytes are read
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, ErrUploadTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrUploadTooLarge
	}
	return n, err
}
