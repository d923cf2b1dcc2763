package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"servicepulse/internal/config"
	apperrors "servicepulse/internal/errors"
	"servicepulse/pkg/contracts/domain"
)

// maxResponseBytes bounds the Apps Script response body
const maxResponseBytes = 32 << 20

// AppsScriptSource fetches enrollments from a deployed Apps Script web app
type AppsScriptSource struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewAppsScriptSource creates a source for endpoint. A zero timeout uses the default.
func NewAppsScriptSource(endpoint string, timeout time.Duration, logger *slog.Logger) *AppsScriptSource {
	if timeout <= 0 {
		timeout = config.DefaultFetchTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AppsScriptSource{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With(slog.String("component", "apps_script_source")),
	}
}

// WithHTTPClient replaces the HTTP client, keeping its own timeout
func (s *AppsScriptSource) WithHTTPClient(c *http.Client) *AppsScriptSource {
	s.client = c
	return s
}

// Name implements Source
func (s *AppsScriptSource) Name() string {
	return "apps_script"
}

// RequestURL returns the endpoint with action=getData set
func (s *AppsScriptSource) RequestURL() (string, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("action", config.FetchAction)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch performs a single GET and decodes the data envelope
func (s *AppsScriptSource) Fetch(ctx context.Context) (*domain.Table, error) {
	target, err := s.RequestURL()
	if err != nil {
		return nil, apperrors.NewNetworkError(fmt.Sprintf("Invalid source URL: %v", err), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, apperrors.NewNetworkError(fmt.Sprintf("Invalid source URL: %v", err), err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WarnContext(ctx, "source request failed", slog.String("error", err.Error()))
		return nil, apperrors.NewNetworkError(fmt.Sprintf("Connection error: %v", err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.NewNetworkError(
			fmt.Sprintf("%d %s for url: %s", resp.StatusCode, http.StatusText(resp.StatusCode), s.endpoint), nil).
			WithContext("status_code", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperrors.NewNetworkError(fmt.Sprintf("Error reading response: %v", err), err)
	}

	t, err := decodeEnvelope(body)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "source fetched",
		slog.Int("rows", t.Len()),
		slog.Int("columns", len(t.Columns)),
		slog.Duration("duration", time.Since(start)))
	return t, nil
}

// decodeEnvelope parses {"data": [...]} or {"error": "..."} into a table
func decodeEnvelope(body []byte) (*domain.Table, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("Invalid JSON response: %v", err), err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, apperrors.NewParsingError("Unknown error", fmt.Errorf("response is not a JSON object"))
	}

	var (
		table    *domain.Table
		errorMsg interface{}
	)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("Invalid JSON response: %v", err), err)
		}
		switch key := keyTok.(string); key {
		case "data":
			table, err = decodeRows(dec)
			if err != nil {
				return nil, apperrors.NewParsingError(fmt.Sprintf("Invalid data payload: %v", err), err)
			}
		case "error":
			if err := dec.Decode(&errorMsg); err != nil {
				return nil, apperrors.NewParsingError(fmt.Sprintf("Invalid JSON response: %v", err), err)
			}
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, apperrors.NewParsingError(fmt.Sprintf("Invalid JSON response: %v", err), err)
			}
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("Invalid JSON response: %v", err), err)
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = fmt.Errorf("unexpected data after top-level object")
		}
		return nil, apperrors.NewParsingError(fmt.Sprintf("Invalid JSON response: %v", err), err)
	}

	if table != nil {
		return table, nil
	}
	msg := "Unknown error"
	if errorMsg != nil {
		msg = fmt.Sprint(errorMsg)
	}
	return nil, apperrors.NewNetworkError(msg, nil).WithContext("source_error", true)
}

// decodeRows reads an array of objects. Columns follow first appearance of
// each key; keys missing from a row are null.
func decodeRows(dec *json.Decoder) (*domain.Table, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return domain.NewTable(), nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("data must be an array")
	}

	t := domain.NewTable()
	var rows []domain.Record
	for dec.More() {
		rec, keys, err := decodeObject(dec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(rows)+1, err)
		}
		for _, k := range keys {
			t.AddColumn(k)
		}
		rows = append(rows, rec)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	for _, r := range rows {
		t.Append(r)
	}
	return t, nil
}

func decodeObject(dec *json.Decoder) (domain.Record, []string, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected an object")
	}

	rec := make(domain.Record)
	var keys []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, err
		}
		if _, dup := rec[key]; !dup {
			keys = append(keys, key)
		}
		rec[key] = jsonValue(raw)
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return rec, keys, nil
}

// jsonValue renders a JSON scalar as cell text. Numbers keep their literal
// form, null is a null cell, nested values keep their compact JSON.
func jsonValue(raw json.RawMessage) domain.Value {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		return domain.Null()
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return domain.Text(s)
		}
	case trimmed[0] == '{' || trimmed[0] == '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err == nil {
			return domain.Text(buf.String())
		}
	}
	return domain.Text(string(trimmed))
}
