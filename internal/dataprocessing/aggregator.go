package dataprocessing

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"servicepulse/pkg/contracts/domain"
)

// topValueLen is the rune length top tutor/team/course values are cut to
const topValueLen = 20

// Summarize computes the KPI summary of a normalized table.
// An empty table yields the zero summary.
func Summarize(t *domain.Table) domain.KPISummary {
	if t.Empty() {
		return domain.KPISummary{}
	}

	var s domain.KPISummary
	for _, r := range t.Rows {
		s.TotalStudents++
		if r.Started() {
			s.Started++
		}
		if r.Completed() {
			s.Completed++
		}
	}
	s.NotStarted = s.TotalStudents - s.Started
	s.InProgress = s.Started - s.Completed
	s.StartRate = percent(s.Started, s.TotalStudents)
	s.CompletionRate = percent(s.Completed, s.TotalStudents)
	s.TopTutor = topValue(t, domain.ColumnTutor)
	s.TopTeam = topValue(t, domain.ColumnTeam)
	s.TopCourse = topValue(t, domain.ColumnCourse)
	return s
}

// BreakdownBy groups a normalized table by key. Groups appear in first-seen
// order, then stably sorted by total descending. Null keys are skipped.
func BreakdownBy(t *domain.Table, key domain.BreakdownKey) domain.GroupBreakdown {
	out := domain.GroupBreakdown{Key: key, Rows: []domain.BreakdownRow{}}
	column := string(key)
	if t.Empty() || !t.HasColumn(column) {
		return out
	}

	type acc struct {
		total, started, completed, inProgress int
	}
	index := make(map[string]int)
	var order []string
	var groups []*acc

	for _, r := range t.Rows {
		v := r[column]
		if v.Null {
			continue
		}
		i, ok := index[v.Text]
		if !ok {
			i = len(groups)
			index[v.Text] = i
			order = append(order, v.Text)
			groups = append(groups, &acc{})
		}
		g := groups[i]
		g.total++
		if r.Started() {
			g.started++
		}
		if r.Completed() {
			g.completed++
		}
		if r[domain.ColumnCompletionStatus].Text == string(domain.CompletionInProgress) {
			g.inProgress++
		}
	}

	for i, name := range order {
		g := groups[i]
		row := domain.BreakdownRow{
			Key:            name,
			TotalStudents:  g.total,
			Started:        g.started,
			Completed:      g.completed,
			CompletionRate: percent(g.completed, g.started),
		}
		if key.Detailed() {
			inProgress := g.inProgress
			startRate := percent(g.started, g.total)
			row.InProgress = &inProgress
			row.StartRate = &startRate
		}
		out.Rows = append(out.Rows, row)
	}

	sort.SliceStable(out.Rows, func(i, j int) bool {
		return out.Rows[i].TotalStudents > out.Rows[j].TotalStudents
	})
	return out
}

// Breakdowns computes every supported breakdown in dashboard order
func Breakdowns(t *domain.Table) []domain.GroupBreakdown {
	out := make([]domain.GroupBreakdown, 0, len(domain.BreakdownKeys))
	for _, k := range domain.BreakdownKeys {
		out = append(out, BreakdownBy(t, k))
	}
	return out
}

// percent returns part/whole*100 rounded to one decimal, clamped to [0,100].
// A zero whole yields 0.
func percent(part, whole int) float64 {
	if whole <= 0 || part <= 0 {
		return 0
	}
	p := round1(float64(part) / float64(whole) * 100)
	return math.Min(p, 100)
}

// round1 rounds the exact binary value of x to one decimal, ties to even
func round1(x float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 1, 64), 64)
	if err != nil {
		return x
	}
	return r
}

// topValue returns the most frequent non-null value of column cut to
// topValueLen runes, or N/A. Ties go to the value that reached the count first.
func topValue(t *domain.Table, column string) string {
	if !t.HasColumn(column) {
		return domain.NotAvailable
	}
	counts := make(map[string]int)
	best, bestCount := "", 0
	for _, r := range t.Rows {
		v := r[column]
		if v.Null {
			continue
		}
		counts[v.Text]++
		if c := counts[v.Text]; c > bestCount {
			best, bestCount = v.Text, c
		}
	}
	if bestCount == 0 {
		return domain.NotAvailable
	}
	return truncate(best, topValueLen)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// ValidateKey parses a breakdown key from user input
func ValidateKey(s string) (domain.BreakdownKey, error) {
	k, err := domain.ParseBreakdownKey(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnknownBreakdown, err)
	}
	return k, nil
}
