package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "servicepulse/internal/errors"
	"servicepulse/internal/files"
	"servicepulse/internal/middleware"
	"servicepulse/internal/services"
)

// ReportArchiveInterface defines the saved report operations
type ReportArchiveInterface interface {
	Save(ctx context.Context, kinds ...files.Kind) ([]files.FileInfo, error)
	List(ctx context.Context) ([]files.FileInfo, error)
	Open(ctx context.Context, name string) (*services.Export, error)
}

var _ ReportArchiveInterface = (*services.ReportArchive)(nil)

// saveReportsRequest is the optional body of POST /api/reports
type saveReportsRequest struct {
	Kinds []string `json:"kinds" validate:"omitempty,dive,oneof=csv xlsx"`
}

// ReportsHandler serves the reports saved in the export directory
type ReportsHandler struct {
	archive      ReportArchiveInterface
	validator    *middleware.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewReportsHandler creates a new reports handler
func NewReportsHandler(archive ReportArchiveInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ReportsHandler {
	return &ReportsHandler{
		archive:      archive,
		validator:    middleware.NewValidationMiddleware(logger, errorHandler),
		logger:       logger.With(slog.String("component", "reports_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the report routes
func (h *ReportsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(h.validator.ValidateRequest)

	r.Get("/", h.List)
	r.Post("/", h.Save)
	r.Get("/{name}", h.Download)
	return r
}

// List handles GET /api/reports
func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	reports, err := h.archive.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "listing reports failed", slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, apierrors.ErrInternalServer)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   reports,
	})
}

// Save handles POST /api/reports. Without a body both kinds are saved.
func (h *ReportsHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req saveReportsRequest
	if r.ContentLength != 0 {
		if err := h.validator.DecodeAndValidate(r, &req); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
	}

	kinds := make([]files.Kind, 0, len(req.Kinds))
	for _, k := range req.Kinds {
		kinds = append(kinds, files.Kind(k))
	}

	saved, err := h.archive.Save(r.Context(), kinds...)
	if err != nil {
		if errors.Is(err, services.ErrNoDataLoaded) {
			h.errorHandler.HandleError(w, r, apierrors.ErrNoDataLoaded)
			return
		}
		h.logger.ErrorContext(r.Context(), "saving reports failed", slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, apierrors.ExportError("archive", err))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   saved,
	})
}

// Download handles GET /api/reports/{name}
func (h *ReportsHandler) Download(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	export, err := h.archive.Open(r.Context(), name)
	if err != nil {
		if errors.Is(err, files.ErrReportNotFound) {
			h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusNotFound, "REPORT_NOT_FOUND", "Report not found",
				map[string]interface{}{"name": name}))
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}
	writeAttachment(w, export)
}
