package ingest

import (
	"context"
	"fmt"
	"strings"

	"servicepulse/pkg/contracts/domain"
)

// Source produces a raw table from a remote system
type Source interface {
	// Name identifies the source kind in logs and metrics
	Name() string
	Fetch(ctx context.Context) (*domain.Table, error)
}

const utf8BOM = "\ufeff"

// uniqueHeaders strips a leading BOM and disambiguates repeated names as
// name.1, name.2 so no column is silently lost
func uniqueHeaders(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		if n, dup := seen[h]; dup {
			seen[h] = n + 1
			h = fmt.Sprintf("%s.%d", h, n+1)
		} else {
			seen[h] = 0
		}
		out[i] = h
	}
	return out
}

// cell converts a raw text cell; empty cells are null
func cell(s string) domain.Value {
	if s == "" {
		return domain.Null()
	}
	return domain.Text(s)
}

// rowsToTable builds a table from a header row and text rows.
// Short rows are padded with nulls; long rows are rejected.
func rowsToTable(header []string, rows [][]string, firstLine int) (*domain.Table, error) {
	t := domain.NewTable(uniqueHeaders(header)...)
	for i, row := range rows {
		if len(row) > len(t.Columns) {
			return nil, fmt.Errorf("line %d: expected %d fields, saw %d", firstLine+i, len(t.Columns), len(row))
		}
		if isBlank(row) {
			continue
		}
		rec := make(domain.Record, len(t.Columns))
		for j, c := range t.Columns {
			if j < len(row) {
				rec[c] = cell(row[j])
			} else {
				rec[c] = domain.Null()
			}
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
