package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NotAvailable is shown for a top value when the column is absent or has no values
const NotAvailable = "N/A"

// KPISummary holds the scalar dashboard metrics over a table.
// The zero value is the summary of an empty table and marshals to {}.
type KPISummary struct {
	TotalStudents  int     `json:"total_students"`
	Started        int     `json:"started"`
	NotStarted     int     `json:"not_started"`
	Completed      int     `json:"completed"`
	InProgress     int     `json:"in_progress"`
	StartRate      float64 `json:"start_rate"`
	CompletionRate float64 `json:"completion_rate"`
	TopTutor       string  `json:"top_tutor"`
	TopTeam        string  `json:"top_team"`
	TopCourse      string  `json:"top_course"`
}

// Empty reports whether the summary was computed over no rows
func (k KPISummary) Empty() bool {
	return k.TotalStudents == 0
}

// MarshalJSON emits an empty object for an empty summary
func (k KPISummary) MarshalJSON() ([]byte, error) {
	if k.Empty() {
		return []byte("{}"), nil
	}
	type alias KPISummary
	return json.Marshal(alias(k))
}

// Metric is a label/value pair of the executive summary
type Metric struct {
	Label string      `json:"metric"`
	Value interface{} `json:"value"`
}

// Metrics returns the seven headline metrics in report order
func (k KPISummary) Metrics() []Metric {
	return []Metric{
		{Label: "Total Students", Value: k.TotalStudents},
		{Label: "Started", Value: k.Started},
		{Label: "Not Started", Value: k.NotStarted},
		{Label: "Completed", Value: k.Completed},
		{Label: "In Progress", Value: k.InProgress},
		{Label: "Start Rate %", Value: k.StartRate},
		{Label: "Completion Rate %", Value: k.CompletionRate},
	}
}

// BreakdownKey names the grouping column of a breakdown
type BreakdownKey string

const (
	BreakdownTutor  BreakdownKey = ColumnTutor
	BreakdownTeam   BreakdownKey = ColumnTeam
	BreakdownCourse BreakdownKey = ColumnCourse
)

// BreakdownKeys lists the supported groupings in dashboard order
var BreakdownKeys = []BreakdownKey{BreakdownTutor, BreakdownTeam, BreakdownCourse}

// ParseBreakdownKey accepts the column name in any case
func ParseBreakdownKey(s string) (BreakdownKey, error) {
	for _, k := range BreakdownKeys {
		if strings.EqualFold(string(k), strings.TrimSpace(s)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown breakdown key %q", s)
}

// Title is the sheet and section title used for the breakdown
func (k BreakdownKey) Title() string {
	switch k {
	case BreakdownTutor:
		return "Tutor Performance"
	case BreakdownTeam:
		return "Team Performance"
	case BreakdownCourse:
		return "Course Analysis"
	default:
		return string(k)
	}
}

// Detailed reports whether the breakdown carries In_Progress and Start_Rate_%
func (k BreakdownKey) Detailed() bool {
	return k == BreakdownTutor
}

// BreakdownRow is the aggregate of one group
type BreakdownRow struct {
	Key            string   `json:"key"`
	TotalStudents  int      `json:"total_students"`
	Started        int      `json:"started"`
	Completed      int      `json:"completed"`
	InProgress     *int     `json:"in_progress,omitempty"`
	StartRate      *float64 `json:"start_rate,omitempty"`
	CompletionRate float64  `json:"completion_rate"`
}

// GroupBreakdown is one row per distinct value of the grouping column,
// ordered by TotalStudents descending.
type GroupBreakdown struct {
	Key  BreakdownKey   `json:"key"`
	Rows []BreakdownRow `json:"rows"`
}

// Empty reports whether the breakdown has no groups
func (b GroupBreakdown) Empty() bool {
	return len(b.Rows) == 0
}

// Headers returns the tabular column names for the breakdown
func (b GroupBreakdown) Headers() []string {
	h := []string{string(b.Key), "Total_Students", "Started", "Completed"}
	if b.Key.Detailed() {
		h = append(h, "In_Progress", "Start_Rate_%")
	}
	return append(h, "Completion_Rate_%")
}

// Values returns row i as typed cells in Headers order
func (b GroupBreakdown) Values(i int) []interface{} {
	r := b.Rows[i]
	v := []interface{}{r.Key, r.TotalStudents, r.Started, r.Completed}
	if b.Key.Detailed() {
		inProgress, startRate := 0, 0.0
		if r.InProgress != nil {
			inProgress = *r.InProgress
		}
		if r.StartRate != nil {
			startRate = *r.StartRate
		}
		v = append(v, inProgress, startRate)
	}
	return append(v, r.CompletionRate)
}

// Top returns the leading group, if any
func (b GroupBreakdown) Top() (BreakdownRow, bool) {
	if b.Empty() {
		return BreakdownRow{}, false
	}
	return b.Rows[0], true
}

// CountEntry is one value of a distribution
type CountEntry struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}
