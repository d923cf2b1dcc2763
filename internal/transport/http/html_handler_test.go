package http

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "servicepulse/internal/errors"
	"servicepulse/internal/services"
	"servicepulse/internal/session"
	"servicepulse/internal/shared/testutil"
	"servicepulse/pkg/contracts/domain"
)

func newPageRouter(t *testing.T, svc *MockDashboardService) http.Handler {
	logger, _ := testutil.NewTestLogger(t)
	h, err := NewPageHandler(svc, logger)
	require.NoError(t, err)
	return h.Routes()
}

func loadedOverview() *services.Overview {
	in, rate := 2, 100.0
	return &services.Overview{
		HasData: true,
		Source:  session.SourceConfig{Kind: session.SourceAppsScript, URL: "https://script.google.com/macros/s/x/exec"},
		Filter:  session.Filter{Month: "Jan"},
		Months:  []string{"All Time", "Jan", "Feb"},
		Summary: domain.KPISummary{
			TotalStudents: 4, Started: 3, NotStarted: 1, Completed: 1, InProgress: 2,
			StartRate: 75, CompletionRate: 25, TopTutor: "Ravi", TopTeam: "Blue", TopCourse: "Python",
		},
		Breakdowns: []domain.GroupBreakdown{
			{Key: domain.BreakdownTutor, Rows: []domain.BreakdownRow{{
				Key: "Ravi", TotalStudents: 3, Started: 3, Completed: 1,
				InProgress: &in, StartRate: &rate, CompletionRate: 33.3,
			}}},
			{Key: domain.BreakdownTeam, Rows: []domain.BreakdownRow{}},
		},
		StatusMix:    []domain.CountEntry{{Value: "Started", Count: 3}, {Value: "Not Started", Count: 1}},
		CompletedMix: []domain.CountEntry{{Value: "In Progress", Count: 3}, {Value: "Completed", Count: 1}},
	}
}

func TestPageHandler_ServeDashboard_NoData(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("Overview").Return(&services.Overview{Months: []string{}}, nil)
	svc.On("MaxUploadBytes").Return(10 << 20)

	rec := doRequest(newPageRouter(t, svc), http.MethodGet, "/?err=boom", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "No data loaded")
	assert.Contains(t, body, "up to 10 MB")
	assert.Contains(t, body, `<div class="flash err">boom</div>`)
	svc.AssertNotCalled(t, "Records", 0, previewRows)
}

func TestPageHandler_ServeDashboard_Loaded(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("Overview").Return(loadedOverview(), nil)
	svc.On("MaxUploadBytes").Return(10 << 20)
	svc.On("Records", 0, previewRows).Return(&services.RecordsPage{
		Columns: []string{"Student_Name", "Tutor"},
		Rows:    []map[string]interface{}{{"Student_Name": "<Asha>", "Tutor": nil}},
		Total:   4,
		Limit:   previewRows,
	}, nil)

	rec := doRequest(newPageRouter(t, svc), http.MethodGet, "/", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "75.0%")
	assert.Contains(t, body, "Tutor Performance")
	assert.NotContains(t, body, "Team Performance")
	assert.Contains(t, body, "<td>33.3</td>")
	assert.Contains(t, body, `<option value="Jan" selected>`)
	assert.Contains(t, body, "&lt;Asha&gt;")
	assert.Contains(t, body, "Raw Data (1 of 4)")
}

func TestPageHandler_Actions(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		form     url.Values
		setup    func(m *MockDashboardService)
		location string
	}{
		{
			name: "fetch success",
			path: "/ui/fetch",
			setup: func(m *MockDashboardService) {
				m.On("Fetch").Return(sampleLoad(), nil)
			},
			location: "/?msg=Loaded+4+records",
		},
		{
			name: "fetch without source",
			path: "/ui/fetch",
			setup: func(m *MockDashboardService) {
				m.On("Fetch").Return(nil, services.ErrSourceNotConfigured)
			},
			location: "/?err=" + url.QueryEscape(apierrors.ErrSourceNotConfigured.Message),
		},
		{
			name: "source saved",
			path: "/ui/source",
			form: url.Values{"kind": {"apps_script"}, "url": {"https://x.test/exec"}},
			setup: func(m *MockDashboardService) {
				src := session.SourceConfig{Kind: session.SourceAppsScript, URL: "https://x.test/exec"}
				m.On("Configure", src).Return(src, nil)
			},
			location: "/?msg=Source+saved",
		},
		{
			name: "filter",
			path: "/ui/filter",
			form: url.Values{"month": {"Feb"}},
			setup: func(m *MockDashboardService) {
				m.On("SetFilter", "Feb").Return(session.Filter{Month: "Feb"}, nil)
			},
			location: "/",
		},
		{
			name: "clear",
			path: "/ui/clear",
			setup: func(m *MockDashboardService) {
				m.On("Clear").Return(session.State{})
			},
			location: "/?msg=Data+cleared",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDashboardService)
			tt.setup(svc)

			rec := doRequest(newPageRouter(t, svc), http.MethodPost, tt.path,
				strings.NewReader(tt.form.Encode()), "application/x-www-form-urlencoded")

			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, tt.location, rec.Header().Get("Location"))
			svc.AssertExpectations(t)
		})
	}
}

func TestPageHandler_Upload(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("MaxUploadBytes").Return(1 << 20)
	svc.On("Upload", "export.csv", "name\nA\n").Return(sampleLoad(), nil)

	body, ct := multipartBody(t, "file", "export.csv", "name\nA\n")
	rec := doRequest(newPageRouter(t, svc), http.MethodPost, "/ui/upload", body, ct)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?msg=Loaded+4+records", rec.Header().Get("Location"))
}
