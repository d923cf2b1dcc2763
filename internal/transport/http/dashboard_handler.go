package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "servicepulse/internal/errors"
	"servicepulse/internal/middleware"
	"servicepulse/internal/services"
	"servicepulse/internal/session"
)

const (
	// uploadField is the multipart field carrying the uploaded file
	uploadField = "file"

	maxRecordsLimit = 10000
)

// DashboardHandler serves the enrollment dashboard API
type DashboardHandler struct {
	service      DashboardServiceInterface
	validator    *middleware.ValidationMiddleware
	query        *middleware.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// sourceRequest is the body of PUT /source
type sourceRequest struct {
	Kind string `json:"kind" validate:"omitempty,oneof=apps_script google_sheets"`
	URL  string `json:"url" validate:"omitempty,sourceurl"`
}

// filterRequest is the body of PUT /filter
type filterRequest struct {
	Month string `json:"month" validate:"month"`
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DashboardServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		validator:    middleware.NewValidationMiddleware(logger, errorHandler),
		query:        middleware.NewQueryParamValidator(logger, errorHandler),
		logger:       logger.With(slog.String("component", "dashboard_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dashboard routes
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(h.validator.ValidateRequest)

	r.Get("/source", h.GetSource)
	r.Put("/source", h.ConfigureSource)
	r.Post("/fetch", h.Fetch)
	r.Post("/upload", h.Upload)
	r.Delete("/", h.Clear)

	r.Put("/filter", h.SetFilter)

	r.Get("/overview", h.GetOverview)
	r.Get("/summary", h.GetSummary)
	r.Get("/breakdowns/{key}", h.GetBreakdown)
	r.Get("/months", h.GetMonths)
	r.Get("/records", h.GetRecords)

	r.Route("/export", func(r chi.Router) {
		r.Get("/csv", h.ExportCSV)
		r.Get("/xlsx", h.ExportWorkbook)
	})

	return r
}

// GetSource handles GET /api/dashboard/source
func (h *DashboardHandler) GetSource(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   h.service.Source(r.Context()),
	})
}

// ConfigureSource handles PUT /api/dashboard/source
func (h *DashboardHandler) ConfigureSource(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	src, err := h.service.Configure(r.Context(), session.SourceConfig{
		Kind: session.SourceKind(req.Kind),
		URL:  req.URL,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   src,
	})
}

// Fetch handles POST /api/dashboard/fetch
func (h *DashboardHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	reqID := chimw.GetReqID(r.Context())
	h.logger.InfoContext(r.Context(), "fetching from source",
		slog.String("request_id", reqID))

	result, err := h.service.Fetch(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "fetch failed",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status":  "success",
		"message": fmt.Sprintf("Loaded %d records", result.Load.Rows),
		"data":    result,
	})
}

// Upload handles POST /api/dashboard/upload with a multipart "file" field
func (h *DashboardHandler) Upload(w http.ResponseWriter, r *http.Request) {
	reqID := chimw.GetReqID(r.Context())
	limit := h.service.MaxUploadBytes()

	// multipart framing adds a little on top of the file itself
	r.Body = http.MaxBytesReader(w, r.Body, limit+(1<<20))
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation(uploadField, "A .csv or .xlsx file is required"))
		return
	}
	defer file.Close()

	h.logger.InfoContext(r.Context(), "file uploaded",
		slog.String("file_name", header.Filename),
		slog.Int64("size", header.Size),
		slog.String("request_id", reqID),
	)

	result, err := h.service.Upload(r.Context(), header.Filename, file, header.Size)
	if err != nil {
		h.logger.WarnContext(r.Context(), "upload rejected",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.handleServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"status":  "success",
		"message": fmt.Sprintf("Loaded %d records from %s", result.Load.Rows, header.Filename),
		"data":    result,
	})
}

// Clear handles DELETE /api/dashboard
func (h *DashboardHandler) Clear(w http.ResponseWriter, r *http.Request) {
	st := h.service.Clear(r.Context())
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data": map[string]interface{}{
			"has_data": st.HasData(),
			"source":   st.Source,
		},
	})
}

// SetFilter handles PUT /api/dashboard/filter
func (h *DashboardHandler) SetFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	filter, err := h.service.SetFilter(r.Context(), req.Month)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   filter,
	})
}

// GetOverview handles GET /api/dashboard/overview
func (h *DashboardHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.service.Overview(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   ov,
	})
}

// GetSummary handles GET /api/dashboard/summary
func (h *DashboardHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   summary,
	})
}

// GetBreakdown handles GET /api/dashboard/breakdowns/{key}
func (h *DashboardHandler) GetBreakdown(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	b, err := h.service.Breakdown(r.Context(), key)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status":  "success",
		"key":     b.Key,
		"headers": b.Headers(),
		"data":    b.Rows,
		"count":   len(b.Rows),
	})
}

// GetMonths handles GET /api/dashboard/months
func (h *DashboardHandler) GetMonths(w http.ResponseWriter, r *http.Request) {
	months, err := h.service.Months(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   months,
		"count":  len(months),
	})
}

// GetRecords handles GET /api/dashboard/records?offset=&limit=
func (h *DashboardHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	offset, ok := h.query.ValidateInt(w, r, "offset", 0, 1<<30, 0)
	if !ok {
		return
	}
	limit, ok := h.query.ValidateInt(w, r, "limit", 0, maxRecordsLimit, 100)
	if !ok {
		return
	}

	page, err := h.service.Records(r.Context(), offset, limit)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   page,
	})
}

// ExportCSV handles GET /api/dashboard/export/csv
func (h *DashboardHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	export, err := h.service.ExportCSV(r.Context())
	if err != nil {
		h.handleExportError(w, r, "csv", err)
		return
	}
	writeAttachment(w, export)
}

// ExportWorkbook handles GET /api/dashboard/export/xlsx
func (h *DashboardHandler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	export, err := h.service.ExportWorkbook(r.Context())
	if err != nil {
		h.handleExportError(w, r, "xlsx", err)
		return
	}
	writeAttachment(w, export)
}

func (h *DashboardHandler) handleExportError(w http.ResponseWriter, r *http.Request, format string, err error) {
	if errors.Is(err, services.ErrNoDataLoaded) {
		h.handleServiceError(w, r, err)
		return
	}
	h.logger.ErrorContext(r.Context(), "export failed",
		slog.String("format", format),
		slog.String("error", err.Error()),
		slog.String("request_id", chimw.GetReqID(r.Context())),
	)
	h.errorHandler.HandleError(w, r, apierrors.ExportError(format, err))
}

// handleServiceError maps service sentinels to API errors. Typed application
// errors pass through to the error handler unchanged.
func (h *DashboardHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNoDataLoaded):
		h.errorHandler.HandleError(w, r, apierrors.ErrNoDataLoaded)
	case errors.Is(err, services.ErrSourceNotConfigured):
		h.errorHandler.HandleError(w, r, apierrors.ErrSourceNotConfigured)
	case errors.Is(err, services.ErrUploadTooLarge):
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusRequestEntityTooLarge,
			"PAYLOAD_TOO_LARGE",
			apierrors.ErrPayloadTooLarge.Message,
			map[string]interface{}{"max_size": h.service.MaxUploadBytes()},
		))
	case errors.Is(err, services.ErrUnsupportedFileType):
		h.errorHandler.HandleError(w, r, apierrors.UnsupportedFileTypeError(apierrors.UserMessage(err)))
	case errors.Is(err, services.ErrUnknownBreakdown):
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("key", "Breakdown must be one of: tutor, team, course"))
	default:
		h.errorHandler.HandleError(w, r, err)
	}
}

// writeAttachment sends an export as a file download
func writeAttachment(w http.ResponseWriter, export *services.Export) {
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(export.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(export.Data)
}
