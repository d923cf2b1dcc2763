package dataprocessing

import (
	"fmt"
	"log/slog"
	"strings"

	"servicepulse/pkg/contracts/domain"
)

// APIColumnMapping renames the lower_snake keys returned by the Apps Script endpoint
var APIColumnMapping = map[string]string{
	"sl_no":          domain.ColumnSerial,
	"student_name":   domain.ColumnStudentName,
	"course":         domain.ColumnCourse,
	"contact_number": domain.ColumnContact,
	"package_hours":  domain.ColumnPackageHours,
	"mail_id":        domain.ColumnEmail,
	"joining_date":   domain.ColumnJoiningDate,
	"status":         domain.ColumnStatus,
	"started_date":   domain.ColumnStartedDate,
	"completed_date": domain.ColumnCompletedDate,
	"tutor_name":     domain.ColumnTutor,
	"team_name":      domain.ColumnTeam,
	"sheet_name":     domain.ColumnMonth,
	"new_old":        domain.ColumnNewOld,
}

// ExportColumnMapping renames the headers of the spreadsheet CSV export.
// The export writes the started date header with a leading space.
var ExportColumnMapping = map[string]string{
	"SL NO":                              domain.ColumnSerial,
	"STUDENT NAME":                       domain.ColumnStudentName,
	"COURSE":                             domain.ColumnCourse,
	"CONTACT NUMBER":                     domain.ColumnContact,
	"PACKAGE (HOURS)":                    domain.ColumnPackageHours,
	"MAIL ID":                            domain.ColumnEmail,
	"JOINING DATE":                       domain.ColumnJoiningDate,
	"INDIVIDUAL - STARTED / NOT STARTED": domain.ColumnStatus,
	" STARTED DATE":                      domain.ColumnStartedDate,
	"STARTED DATE":                       domain.ColumnStartedDate,
	"COURSE COMPLETED DATE":              domain.ColumnCompletedDate,
	"TUTOR NAME":                         domain.ColumnTutor,
	"TEAM NAME":                          domain.ColumnTeam,
}

// completionSentinels are completed-date texts that mean "no date"
var completionSentinels = map[string]bool{
	"":     true,
	"nan":  true,
	"None": true,
	"NaT":  true,
}

// minStartedDateLen is the trimmed length a started date must exceed to count as recorded
const minStartedDateLen = 4

// StatusRule matches a lower-cased status text containing Contains and not containing Excludes
type StatusRule struct {
	Contains string
	Excludes string
}

func (r StatusRule) match(s string) bool {
	if !strings.Contains(s, r.Contains) {
		return false
	}
	return r.Excludes == "" || !strings.Contains(s, r.Excludes)
}

// StatusClassifier maps free-text status values onto Started / Not Started.
// A text is Started when any rule matches.
type StatusClassifier struct {
	Name  string
	Rules []StatusRule
}

// StrictClassifier treats "started" without "not", or "yes", as Started
var StrictClassifier = StatusClassifier{
	Name: "strict",
	Rules: []StatusRule{
		{Contains: "started", Excludes: "not"},
		{Contains: "yes"},
	},
}

// LooseClassifier additionally treats any text containing "start" as Started,
// which includes "not started".
var LooseClassifier = StatusClassifier{
	Name: "loose",
	Rules: []StatusRule{
		{Contains: "started", Excludes: "not"},
		{Contains: "yes"},
		{Contains: "start"},
	},
}

// ClassifierFor returns the classifier registered under policy
func ClassifierFor(policy string) (StatusClassifier, error) {
	switch strings.ToLower(strings.TrimSpace(policy)) {
	case "", StrictClassifier.Name:
		return StrictClassifier, nil
	case LooseClassifier.Name:
		return LooseClassifier, nil
	default:
		return StatusClassifier{}, fmt.Errorf("unknown status policy %q", policy)
	}
}

// Classify returns the start status of a raw status text
func (c StatusClassifier) Classify(raw string) domain.StartStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, r := range c.Rules {
		if r.match(s) {
			return domain.StatusStarted
		}
	}
	return domain.StatusNotStarted
}

// Normalizer renames source columns and derives the status and completion fields
type Normalizer struct {
	classifier StatusClassifier
	logger     *slog.Logger
}

// NewNormalizer creates a normalizer using classifier
func NewNormalizer(classifier StatusClassifier, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	if len(classifier.Rules) == 0 {
		classifier = StrictClassifier
	}
	return &Normalizer{
		classifier: classifier,
		logger:     logger.With(slog.String("component", "normalizer")),
	}
}

// Normalize returns a normalized copy of t. The input is never modified.
func (n *Normalizer) Normalize(t *domain.Table) *domain.Table {
	out := Normalize(t, n.classifier)
	if !t.Empty() {
		n.logger.Debug("table normalized",
			slog.String("policy", n.classifier.Name),
			slog.Int("rows", out.Len()),
			slog.Int("columns", len(out.Columns)))
	}
	return out
}

// Normalize applies the column mappings and derivations to a copy of t.
// A table without rows is returned as is.
func Normalize(t *domain.Table, classifier StatusClassifier) *domain.Table {
	if t.Empty() {
		return t
	}

	out := renameColumns(t.Clone())
	hasStatus := out.HasColumn(domain.ColumnStatus)
	hasStarted := out.HasColumn(domain.ColumnStartedDate)
	hasCompleted := out.HasColumn(domain.ColumnCompletedDate)
	hadClean := out.HasColumn(domain.ColumnStatusClean)

	out.AddColumn(domain.ColumnStatusClean)
	out.AddColumn(domain.ColumnIsCompleted)
	out.AddColumn(domain.ColumnCompletionStatus)

	for _, r := range out.Rows {
		status := domain.StatusNotStarted
		switch {
		case hasStatus:
			status = classifier.Classify(r[domain.ColumnStatus].String())
		case hadClean && r[domain.ColumnStatusClean].Text == string(domain.StatusStarted):
			status = domain.StatusStarted
		}
		if hasStarted && len(r[domain.ColumnStartedDate].Trimmed()) > minStartedDateLen {
			status = domain.StatusStarted
		}
		r[domain.ColumnStatusClean] = domain.Text(string(status))

		completed := hasCompleted && isCompletionDate(r[domain.ColumnCompletedDate])
		r[domain.ColumnIsCompleted] = domain.Bool(completed)
		if completed {
			r[domain.ColumnCompletionStatus] = domain.Text(string(domain.CompletionCompleted))
		} else {
			r[domain.ColumnCompletionStatus] = domain.Text(string(domain.CompletionInProgress))
		}
	}
	return out
}

func isCompletionDate(v domain.Value) bool {
	if v.Null {
		return false
	}
	return !completionSentinels[v.Trimmed()]
}

// renameColumns maps source headers onto canonical names in place.
// A source column whose canonical name is already taken keeps its name.
func renameColumns(t *domain.Table) *domain.Table {
	renames := make(map[string]string)
	taken := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		taken[c] = true
	}

	for i, c := range t.Columns {
		target, ok := canonicalName(c)
		if !ok || target == c || taken[target] {
			continue
		}
		renames[c] = target
		taken[target] = true
		delete(taken, c)
		t.Columns[i] = target
	}
	if len(renames) == 0 {
		return t
	}

	for _, r := range t.Rows {
		for from, to := range renames {
			if v, ok := r[from]; ok {
				r[to] = v
				delete(r, from)
			}
		}
	}
	return t
}

func canonicalName(column string) (string, bool) {
	if c, ok := APIColumnMapping[column]; ok {
		return c, true
	}
	c, ok := ExportColumnMapping[column]
	return c, ok
}
