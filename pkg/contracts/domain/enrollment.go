package domain

import (
	"strings"
)

// Canonical column names. Every source layout is renamed onto these.
const (
	ColumnSerial        = "SL_NO"
	ColumnStudentName   = "Student_Name"
	ColumnCourse        = "Course"
	ColumnContact       = "Contact"
	ColumnPackageHours  = "Package_Hours"
	ColumnEmail         = "Email"
	ColumnJoiningDate   = "Joining_Date"
	ColumnStatus        = "Status"
	ColumnStartedDate   = "Started_Date"
	ColumnCompletedDate = "Completed_Date"
	ColumnTutor         = "Tutor"
	ColumnTeam          = "Team"
	ColumnMonth         = "Month"
	ColumnNewOld        = "New_Old"

	// Derived by the normalizer
	ColumnStatusClean      = "Status_Clean"
	ColumnIsCompleted      = "Is_Completed"
	ColumnCompletionStatus = "Completion_Status"
)

// StartStatus is the cleaned start state of an enrollment
type StartStatus string

const (
	StatusStarted    StartStatus = "Started"
	StatusNotStarted StartStatus = "Not Started"
)

// CompletionStatus is the derived completion state of an enrollment
type CompletionStatus string

const (
	CompletionCompleted  CompletionStatus = "Completed"
	CompletionInProgress CompletionStatus = "In Progress"
)

// Value is a single cell. Null marks a cell whose column exists but carries no data.
type Value struct {
	Text string
	Null bool
}

// Text returns a non-null cell holding s
func Text(s string) Value {
	return Value{Text: s}
}

// Null returns a null cell
func Null() Value {
	return Value{Null: true}
}

// Bool returns a cell holding the canonical textual form of b
func Bool(b bool) Value {
	if b {
		return Value{Text: "true"}
	}
	return Value{Text: "false"}
}

// String renders the cell the way spreadsheet exports show it; null is empty.
func (v Value) String() string {
	if v.Null {
		return ""
	}
	return v.Text
}

// Trimmed returns the cell text with surrounding whitespace removed
func (v Value) Trimmed() string {
	return strings.TrimSpace(v.String())
}

// Record is one student-course enrollment row keyed by column name.
// Columns missing from the map are absent from the row.
type Record map[string]Value

// Get returns the cell for column and whether the column is present
func (r Record) Get(column string) (Value, bool) {
	v, ok := r[column]
	return v, ok
}

// Started reports whether the normalized start status is Started
func (r Record) Started() bool {
	return r[ColumnStatusClean].Text == string(StatusStarted)
}

// Completed reports whether the normalized record is completed
func (r Record) Completed() bool {
	return r[ColumnIsCompleted].Text == "true"
}

// Clone returns a shallow copy safe to mutate
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is an ordered collection of records sharing a schema
type Table struct {
	Columns []string
	Rows    []Record
}

// NewTable creates an empty table with the given columns
func NewTable(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// Len returns the number of rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Empty reports whether the table has no rows
func (t *Table) Empty() bool {
	return t.Len() == 0
}

// HasColumn reports whether column is part of the schema
func (t *Table) HasColumn(column string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// AddColumn appends column to the schema if it is not already present
func (t *Table) AddColumn(column string) {
	if !t.HasColumn(column) {
		t.Columns = append(t.Columns, column)
	}
}

// Append adds a row; cells for columns outside the schema are dropped
// and schema columns missing from the row become null.
func (t *Table) Append(row Record) {
	rec := make(Record, len(t.Columns))
	for _, c := range t.Columns {
		if v, ok := row[c]; ok {
			rec[c] = v
		} else {
			rec[c] = Null()
		}
	}
	t.Rows = append(t.Rows, rec)
}

// Clone returns a deep copy of the table
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]Record, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}

// Where returns a new table with the same schema holding rows that match keep
func (t *Table) Where(keep func(Record) bool) *Table {
	out := &Table{Columns: append([]string(nil), t.Columns...)}
	for _, r := range t.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// Strings returns each row rendered in column order
func (t *Table) Strings() [][]string {
	out := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			row[i] = r[c].String()
		}
		out = append(out, row)
	}
	return out
}
