package http

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	apierrors "servicepulse/internal/errors"
	"servicepulse/internal/exporter"
	"servicepulse/internal/services"
	"servicepulse/internal/session"
	"servicepulse/pkg/contracts"
	"servicepulse/pkg/contracts/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// previewRows is how many raw rows the page shows
const previewRows = 50

// PageHandler renders the dashboard page and handles its form posts.
// Every action redirects back to the page with a flash message.
type PageHandler struct {
	service DashboardServiceInterface
	tmpl    *template.Template
	logger  *slog.Logger
}

// pageData is the template model of the dashboard page
type pageData struct {
	Overview    *services.Overview
	Records     *services.RecordsPage
	Message     string
	Error       string
	Version     string
	MaxUploadMB int64
	Sheets      bool
}

// NewPageHandler parses the embedded dashboard template
func NewPageHandler(service DashboardServiceInterface, logger *slog.Logger) (*PageHandler, error) {
	tmpl, err := template.New("dashboard.html").Funcs(template.FuncMap{
		"rate": exporter.FormatRate,
		"cell": exporter.FormatCell,
		"values": func(b domain.GroupBreakdown, i int) []interface{} {
			return b.Values(i)
		},
		"title": func(k domain.BreakdownKey) string {
			return k.Title()
		},
		"raw": func(v interface{}) string {
			if v == nil {
				return ""
			}
			return exporter.FormatCell(v)
		},
	}).ParseFS(templateFS, "templates/dashboard.html")
	if err != nil {
		return nil, err
	}
	return &PageHandler{
		service: service,
		tmpl:    tmpl,
		logger:  logger.With(slog.String("handler", "page")),
	}, nil
}

// Routes returns the page and its form actions
func (h *PageHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeDashboard)
	r.Route("/ui", func(r chi.Router) {
		r.Post("/source", h.ConfigureSource)
		r.Post("/fetch", h.Fetch)
		r.Post("/upload", h.Upload)
		r.Post("/filter", h.SetFilter)
		r.Post("/clear", h.Clear)
	})
	return r
}

// ServeDashboard renders the page for the current session
func (h *PageHandler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ov, err := h.service.Overview(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "overview failed", slog.String("error", err.Error()))
		http.Error(w, "Error loading dashboard", http.StatusInternalServerError)
		return
	}

	data := pageData{
		Overview:    ov,
		Message:     r.URL.Query().Get("msg"),
		Error:       r.URL.Query().Get("err"),
		Version:     contracts.GetVersionString(),
		MaxUploadMB: h.service.MaxUploadBytes() >> 20,
		Sheets:      ov.Source.Kind == session.SourceSheets,
	}
	if ov.HasData {
		if page, err := h.service.Records(ctx, 0, previewRows); err == nil {
			data.Records = page
		}
	}

	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, data); err != nil {
		h.logger.ErrorContext(ctx, "template failed", slog.String("error", err.Error()))
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// ConfigureSource handles the source form
func (h *PageHandler) ConfigureSource(w http.ResponseWriter, r *http.Request) {
	src := session.SourceConfig{
		Kind: session.SourceKind(r.FormValue("kind")),
		URL:  r.FormValue("url"),
	}
	if _, err := h.service.Configure(r.Context(), src); err != nil {
		h.redirect(w, r, "", err)
		return
	}
	h.redirect(w, r, "Source saved", nil)
}

// Fetch handles the fetch button
func (h *PageHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Fetch(r.Context())
	if err != nil {
		h.redirect(w, r, "", err)
		return
	}
	h.redirect(w, r, loadedMessage(result), nil)
}

// Upload handles the file form
func (h *PageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.service.MaxUploadBytes()+(1<<20))
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			h.redirect(w, r, "", services.ErrUploadTooLarge)
			return
		}
		h.redirect(w, r, "", apierrors.NewAppValidationError("Choose a .csv or .xlsx file to upload"))
		return
	}
	defer file.Close()

	result, err := h.service.Upload(r.Context(), header.Filename, file, header.Size)
	if err != nil {
		h.redirect(w, r, "", err)
		return
	}
	h.redirect(w, r, loadedMessage(result), nil)
}

// SetFilter handles the month selector
func (h *PageHandler) SetFilter(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.SetFilter(r.Context(), r.FormValue("month")); err != nil {
		h.redirect(w, r, "", err)
		return
	}
	h.redirect(w, r, "", nil)
}

// Clear handles the clear button
func (h *PageHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.service.Clear(r.Context())
	h.redirect(w, r, "Data cleared", nil)
}

// redirect sends the browser back to the page with a flash message
func (h *PageHandler) redirect(w http.ResponseWriter, r *http.Request, msg string, err error) {
	q := url.Values{}
	if err != nil {
		h.logger.WarnContext(r.Context(), "page action failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		q.Set("err", flashMessage(err))
	} else if msg != "" {
		q.Set("msg", msg)
	}
	target := "/"
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func loadedMessage(result *services.LoadResult) string {
	return "Loaded " + exporter.FormatCell(result.Load.Rows) + " records"
}

// flashMessage turns an error into text fit for the page
func flashMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrNoDataLoaded):
		return apierrors.ErrNoDataLoaded.Message
	case errors.Is(err, services.ErrSourceNotConfigured):
		return apierrors.ErrSourceNotConfigured.Message
	case errors.Is(err, services.ErrUploadTooLarge):
		return apierrors.ErrPayloadTooLarge.Message
	default:
		return apierrors.UserMessage(err)
	}
}
