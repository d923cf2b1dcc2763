package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "servicepulse/internal/errors"
	"servicepulse/internal/shared/testutil"
	"servicepulse/pkg/contracts/domain"
)

func newScriptServer(t *testing.T, status int, body string) (*httptest.Server, *url.Values) {
	t.Helper()
	query := &url.Values{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*query = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, query
}

func TestAppsScriptSource_Fetch(t *testing.T) {
	body := `{"data":[
		{"sl_no":1,"student_name":"Asha","status":"Started","completed_date":"2024-01-20","fee":1250.50},
		{"sl_no":2,"student_name":"Bala","status":"yes","completed_date":null,"tags":["a","b"],"extra":""}
	]}`
	srv, query := newScriptServer(t, http.StatusOK, body)

	logger, _ := testutil.NewTestLogger(t)
	src := NewAppsScriptSource(srv.URL+"/exec?deployment=abc", time.Second, logger)
	tbl, err := src.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "getData", query.Get("action"))
	assert.Equal(t, "abc", query.Get("deployment"))

	assert.Equal(t,
		[]string{"sl_no", "student_name", "status", "completed_date", "fee", "tags", "extra"},
		tbl.Columns)
	require.Equal(t, 2, tbl.Len())

	first, second := tbl.Rows[0], tbl.Rows[1]
	assert.Equal(t, "1", first["sl_no"].Text)
	assert.Equal(t, "1250.50", first["fee"].Text)
	assert.True(t, first["tags"].Null, "missing keys become null")
	assert.True(t, second["completed_date"].Null)
	assert.Equal(t, `["a","b"]`, second["tags"].Text)
	assert.Equal(t, domain.Text(""), second["extra"])
	assert.True(t, second["fee"].Null)
}

func TestAppsScriptSource_FetchSampleRowsNormalize(t *testing.T) {
	srv, _ := newScriptServer(t, http.StatusOK, string(testutil.APIBody(t, testutil.SampleAPIRows())))

	tbl, err := NewAppsScriptSource(srv.URL, 0, nil).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, tbl.Len())
	assert.True(t, tbl.HasColumn("sheet_name"))
}

func TestAppsScriptSource_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType apperrors.ErrorType
		wantMsg  string
	}{
		{"script error", http.StatusOK, `{"error":"Sheet not found"}`, apperrors.ErrTypeNetwork, "Sheet not found"},
		{"no data key", http.StatusOK, `{"status":"ok"}`, apperrors.ErrTypeNetwork, "Unknown error"},
		{"server error", http.StatusInternalServerError, `oops`, apperrors.ErrTypeNetwork, "500 Internal Server Error for url"},
		{"malformed json", http.StatusOK, `{"data":[{"a":1}`, apperrors.ErrTypeParsing, "Invalid"},
		{"html page", http.StatusOK, `<html>login</html>`, apperrors.ErrTypeParsing, "Invalid JSON response"},
		{"data not array", http.StatusOK, `{"data":"x"}`, apperrors.ErrTypeParsing, "data must be an array"},
		{"trailing html", http.StatusOK, `{"data":[{"status":"yes"}]} <html>oops`, apperrors.ErrTypeParsing, "Invalid JSON response"},
		{"second object", http.StatusOK, `{"data":[]} {"data":[]}`, apperrors.ErrTypeParsing, "unexpected data after top-level object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newScriptServer(t, tt.status, tt.body)

			_, err := NewAppsScriptSource(srv.URL, time.Second, nil).Fetch(context.Background())
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.wantType), "got %v", err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestAppsScriptSource_NullData(t *testing.T) {
	srv, _ := newScriptServer(t, http.StatusOK, `{"data":null}`)

	tbl, err := NewAppsScriptSource(srv.URL, time.Second, nil).Fetch(context.Background())
	require.NoError(t, err)
	assert.True(t, tbl.Empty())
}

func TestAppsScriptSource_TrailingWhitespace(t *testing.T) {
	srv, _ := newScriptServer(t, http.StatusOK, "{\"data\":[{\"status\":\"yes\"}]}\n\r\n ")

	tbl, err := NewAppsScriptSource(srv.URL, time.Second, nil).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())
}

func TestAppsScriptSource_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewAppsScriptSource(srv.URL, 50*time.Millisecond, nil).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNetwork))
	assert.Contains(t, apperrors.UserMessage(err), "Connection error")
}

func TestAppsScriptSource_RequestURL(t *testing.T) {
	src := NewAppsScriptSource("https://script.google.com/macros/s/X/exec?action=old", 0, nil)
	u, err := src.RequestURL()
	require.NoError(t, err)
	assert.Equal(t, "https://script.google.com/macros/s/X/exec?action=getData", u)
	assert.Equal(t, "apps_script", src.Name())
}
