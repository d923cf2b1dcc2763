package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "servicepulse/internal/errors"
	"servicepulse/internal/files"
	"servicepulse/internal/services"
	"servicepulse/internal/shared/testutil"
)

// MockReportArchive is a mock implementation of ReportArchiveInterface
type MockReportArchive struct {
	mock.Mock
}

func (m *MockReportArchive) Save(ctx context.Context, kinds ...files.Kind) ([]files.FileInfo, error) {
	args := m.Called(kinds)
	if v := args.Get(0); v != nil {
		return v.([]files.FileInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockReportArchive) List(ctx context.Context) ([]files.FileInfo, error) {
	args := m.Called()
	if v := args.Get(0); v != nil {
		return v.([]files.FileInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockReportArchive) Open(ctx context.Context, name string) (*services.Export, error) {
	args := m.Called(name)
	if v := args.Get(0); v != nil {
		return v.(*services.Export), args.Error(1)
	}
	return nil, args.Error(1)
}

func newReportsRouter(t *testing.T, archive *MockReportArchive) http.Handler {
	logger, _ := testutil.NewTestLogger(t)
	h := NewReportsHandler(archive, logger, apierrors.NewErrorHandler(logger, false))
	r := chi.NewRouter()
	r.Mount("/api/reports", h.Routes())
	return r
}

func savedCSV() files.FileInfo {
	return files.FileInfo{
		Name:       "service_data_20240307.csv",
		Kind:       files.KindCSV,
		ReportDate: time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC),
		Size:       42,
	}
}

func TestReportsHandler_List(t *testing.T) {
	archive := new(MockReportArchive)
	archive.On("List").Return([]files.FileInfo{savedCSV()}, nil)

	rec := doRequest(newReportsRouter(t, archive), http.MethodGet, "/api/reports", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	data := body["data"].([]interface{})
	require.Len(t, data, 1)
	entry := data[0].(map[string]interface{})
	assert.Equal(t, "service_data_20240307.csv", entry["name"])
	assert.Equal(t, "csv", entry["kind"])
	assert.NotContains(t, entry, "Path")
	archive.AssertExpectations(t)
}

func TestReportsHandler_ListFailure(t *testing.T) {
	archive := new(MockReportArchive)
	archive.On("List").Return(nil, errors.New("permission denied"))

	rec := doRequest(newReportsRouter(t, archive), http.MethodGet, "/api/reports", nil, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestReportsHandler_Save(t *testing.T) {
	t.Run("no body saves both kinds", func(t *testing.T) {
		archive := new(MockReportArchive)
		archive.On("Save", []files.Kind{}).Return([]files.FileInfo{savedCSV()}, nil)

		rec := doRequest(newReportsRouter(t, archive), http.MethodPost, "/api/reports", nil, "")
		assert.Equal(t, http.StatusCreated, rec.Code)
		archive.AssertExpectations(t)
	})

	t.Run("selected kinds", func(t *testing.T) {
		archive := new(MockReportArchive)
		archive.On("Save", []files.Kind{files.KindCSV}).Return([]files.FileInfo{savedCSV()}, nil)

		rec := doRequest(newReportsRouter(t, archive), http.MethodPost, "/api/reports",
			strings.NewReader(`{"kinds":["csv"]}`), "application/json")
		assert.Equal(t, http.StatusCreated, rec.Code)
		archive.AssertExpectations(t)
	})

	t.Run("unknown kind", func(t *testing.T) {
		archive := new(MockReportArchive)

		rec := doRequest(newReportsRouter(t, archive), http.MethodPost, "/api/reports",
			strings.NewReader(`{"kinds":["pdf"]}`), "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		archive.AssertNotCalled(t, "Save", mock.Anything)
	})

	t.Run("nothing loaded", func(t *testing.T) {
		archive := new(MockReportArchive)
		archive.On("Save", []files.Kind{}).Return(nil, fmt.Errorf("export: %w", services.ErrNoDataLoaded))

		rec := doRequest(newReportsRouter(t, archive), http.MethodPost, "/api/reports", nil, "")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("write failure", func(t *testing.T) {
		archive := new(MockReportArchive)
		archive.On("Save", []files.Kind{}).Return(nil, errors.New("disk full"))

		rec := doRequest(newReportsRouter(t, archive), http.MethodPost, "/api/reports", nil, "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestReportsHandler_Download(t *testing.T) {
	archive := new(MockReportArchive)
	archive.On("Open", "service_data_20240307.csv").Return(&services.Export{
		FileName:    "service_data_20240307.csv",
		ContentType: services.ContentTypeCSV,
		Data:        []byte("Tutor\nRavi\n"),
	}, nil)
	archive.On("Open", "missing.csv").Return(nil, fmt.Errorf("%w: %q", files.ErrReportNotFound, "missing.csv"))

	router := newReportsRouter(t, archive)

	rec := doRequest(router, http.MethodGet, "/api/reports/service_data_20240307.csv", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, services.ContentTypeCSV, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="service_data_20240307.csv"`)
	assert.Equal(t, "Tutor\nRavi\n", rec.Body.String())

	rec = doRequest(router, http.MethodGet, "/api/reports/missing.csv", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "REPORT_NOT_FOUND")
}
