package session

import (
	"strings"
	"time"

	"servicepulse/internal/dataprocessing"
	"servicepulse/pkg/contracts/domain"
)

// SourceKind identifies where the current table came from
type SourceKind string

const (
	SourceNone       SourceKind = ""
	SourceAppsScript SourceKind = "apps_script"
	SourceSheets     SourceKind = "google_sheets"
	SourceFile       SourceKind = "file"
)

// SourceConfig describes the configured or last used data source
type SourceConfig struct {
	Kind     SourceKind `json:"kind,omitempty"`
	URL      string     `json:"url,omitempty"`
	FileName string     `json:"file_name,omitempty"`
}

// Filter restricts the view of the loaded table
type Filter struct {
	Month string `json:"month"`
}

// All reports whether the filter keeps every row
func (f Filter) All() bool {
	m := strings.TrimSpace(f.Month)
	return m == "" || m == dataprocessing.AllTime
}

// Load describes one successful load
type Load struct {
	ID       string     `json:"id"`
	Source   SourceKind `json:"source"`
	FileName string     `json:"file_name,omitempty"`
	Rows     int        `json:"rows"`
	LoadedAt time.Time  `json:"loaded_at"`
}

// State is the whole session. The zero value is a fresh session with no data.
type State struct {
	Source SourceConfig
	Table  *domain.Table
	Filter Filter
	Load   *Load
}

// HasData reports whether a table is loaded
func (s State) HasData() bool {
	return s.Table != nil
}

// WithSource sets the configured source and keeps any loaded table
func (s State) WithSource(src SourceConfig) State {
	s.Source = src
	return s
}

// Loaded replaces the table and resets the filter. A file load also records
// the file as the current source.
func (s State) Loaded(t *domain.Table, load Load) State {
	s.Table = t
	s.Filter = Filter{}
	s.Load = &load
	if load.Source == SourceFile {
		s.Source.Kind = SourceFile
		s.Source.FileName = load.FileName
	}
	return s
}

// WithFilter sets the month filter. A month not present in the table yields
// an empty view rather than an error.
func (s State) WithFilter(f Filter) State {
	f.Month = strings.TrimSpace(f.Month)
	s.Filter = f
	return s
}

// Cleared drops the loaded table and filter, keeping the configured source
func (s State) Cleared() State {
	return State{Source: s.Source}
}

// View returns the loaded table narrowed by the filter, or nil when nothing is loaded
func (s State) View() *domain.Table {
	if s.Table == nil {
		return nil
	}
	if s.Filter.All() {
		return s.Table
	}
	return dataprocessing.FilterByMonth(s.Table, s.Filter.Month)
}
