package dataprocessing

import (
	"errors"
	"sort"
	"strings"

	"servicepulse/pkg/contracts/domain"
)

// AllTime is the month filter value that keeps every row
const AllTime = "All Time"

// ErrUnknownBreakdown is returned for a grouping key outside Tutor, Team and Course
var ErrUnknownBreakdown = errors.New("unknown breakdown key")

// FilterByMonth returns the rows whose Month equals month.
// AllTime, an empty month or a table without a Month column returns t unchanged.
func FilterByMonth(t *domain.Table, month string) *domain.Table {
	month = strings.TrimSpace(month)
	if t.Empty() || month == "" || month == AllTime || !t.HasColumn(domain.ColumnMonth) {
		return t
	}
	return t.Where(func(r domain.Record) bool {
		v := r[domain.ColumnMonth]
		return !v.Null && v.Text == month
	})
}

// Months returns the sorted distinct non-null Month values
func Months(t *domain.Table) []string {
	if !t.HasColumn(domain.ColumnMonth) {
		return []string{}
	}
	seen := make(map[string]bool)
	months := []string{}
	for _, r := range t.Rows {
		v := r[domain.ColumnMonth]
		if v.Null || seen[v.Text] {
			continue
		}
		seen[v.Text] = true
		months = append(months, v.Text)
	}
	sort.Strings(months)
	return months
}

// MonthOptions returns the month filter choices, AllTime first
func MonthOptions(t *domain.Table) []string {
	return append([]string{AllTime}, Months(t)...)
}

// Distribution counts the non-null values of column, most frequent first.
// Equal counts keep first-seen order.
func Distribution(t *domain.Table, column string) []domain.CountEntry {
	out := []domain.CountEntry{}
	if !t.HasColumn(column) {
		return out
	}
	index := make(map[string]int)
	for _, r := range t.Rows {
		v := r[column]
		if v.Null {
			continue
		}
		i, ok := index[v.Text]
		if !ok {
			i = len(out)
			index[v.Text] = i
			out = append(out, domain.CountEntry{Value: v.Text})
		}
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}
