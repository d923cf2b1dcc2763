package dataprocessing

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"servicepulse/pkg/contracts/domain"
)

func sampleTable() *domain.Table {
	return Normalize(tableOf(
		[]string{"tutor_name", "team_name", "course", "status", "started_date", "completed_date", "sheet_name"},
		[]string{"Ravi", "Blue", "Python", "Started", "", "2024-01-20", "Jan"},
		[]string{"Ravi", "Blue", "Python", "yes", "", "", "Jan"},
		[]string{"Meera", "Red", "Java", "not started", "", "", "Feb"},
		[]string{"Ravi", "Red", "Java", "not started", "2024-02-02", "", "Feb"},
		[]string{"Meera", "Blue", "Python", "Started", "", "2024-02-11", "Feb"},
		[]string{"<null>", "Green", "SQL", "no", "", "", "<null>"},
	), StrictClassifier)
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleTable())

	assert.Equal(t, domain.KPISummary{
		TotalStudents:  6,
		Started:        4,
		NotStarted:     2,
		Completed:      2,
		InProgress:     2,
		StartRate:      66.7,
		CompletionRate: 33.3,
		TopTutor:       "Ravi",
		TopTeam:        "Blue",
		TopCourse:      "Python",
	}, s)
}

func TestSummarize_EmptyTable(t *testing.T) {
	for _, tbl := range []*domain.Table{nil, domain.NewTable(), domain.NewTable("Tutor", "Status")} {
		s := Summarize(tbl)
		assert.True(t, s.Empty())

		data, err := json.Marshal(s)
		require.NoError(t, err)
		assert.JSONEq(t, `{}`, string(data))

		for _, k := range domain.BreakdownKeys {
			b := BreakdownBy(tbl, k)
			assert.True(t, b.Empty())
			assert.NotNil(t, b.Rows)
		}
	}
}

func TestSummarize_TopValues(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		rows    [][]string
		tutor   string
		course  string
	}{
		{
			name:    "missing columns",
			columns: []string{"status"},
			rows:    [][]string{{"yes"}},
			tutor:   domain.NotAvailable,
			course:  domain.NotAvailable,
		},
		{
			name:    "all null",
			columns: []string{"tutor_name", "course"},
			rows:    [][]string{{"<null>", "<null>"}},
			tutor:   domain.NotAvailable,
			course:  domain.NotAvailable,
		},
		{
			name:    "truncated to twenty characters",
			columns: []string{"tutor_name", "course"},
			rows:    [][]string{{"Dr. Venkataraman Subramanian", "Full Stack Web Development"}},
			tutor:   "Dr. Venkataraman Sub",
			course:  "Full Stack Web Devel",
		},
		{
			name:    "multibyte truncation",
			columns: []string{"tutor_name", "course"},
			rows:    [][]string{{"ஆசிரியர் ஆசிரியர் ஆசிரியர்", "Go"}},
			tutor:   string([]rune("ஆசிரியர் ஆசிரியர் ஆசிரியர்")[:20]),
			course:  "Go",
		},
		{
			name:    "tie goes to value reaching the count first",
			columns: []string{"tutor_name", "course"},
			rows:    [][]string{{"B", "x"}, {"A", "y"}, {"A", "y"}, {"B", "x"}},
			tutor:   "A",
			course:  "y",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize(Normalize(tableOf(tt.columns, tt.rows...), StrictClassifier))
			assert.Equal(t, tt.tutor, s.TopTutor)
			assert.Equal(t, tt.course, s.TopCourse)
			assert.Equal(t, domain.NotAvailable, s.TopTeam)
		})
	}
}

func TestBreakdownBy_Tutor(t *testing.T) {
	b := BreakdownBy(sampleTable(), domain.BreakdownTutor)

	require.Len(t, b.Rows, 2)
	ravi, meera := b.Rows[0], b.Rows[1]

	assert.Equal(t, "Ravi", ravi.Key)
	assert.Equal(t, 3, ravi.TotalStudents)
	assert.Equal(t, 3, ravi.Started)
	assert.Equal(t, 1, ravi.Completed)
	require.NotNil(t, ravi.InProgress)
	assert.Equal(t, 2, *ravi.InProgress)
	require.NotNil(t, ravi.StartRate)
	assert.Equal(t, 100.0, *ravi.StartRate)
	assert.Equal(t, 33.3, ravi.CompletionRate)

	assert.Equal(t, "Meera", meera.Key)
	assert.Equal(t, 2, meera.TotalStudents)
	assert.Equal(t, 1, meera.Started)
	assert.Equal(t, 1, meera.Completed)
	assert.Equal(t, 50.0, *meera.StartRate)
	assert.Equal(t, 100.0, meera.CompletionRate)

	assert.Equal(t,
		[]string{"Tutor", "Total_Students", "Started", "Completed", "In_Progress", "Start_Rate_%", "Completion_Rate_%"},
		b.Headers())
	assert.Equal(t, []interface{}{"Ravi", 3, 3, 1, 2, 100.0, 33.3}, b.Values(0))
}

func TestBreakdownBy_TeamAndCourse(t *testing.T) {
	team := BreakdownBy(sampleTable(), domain.BreakdownTeam)
	require.Len(t, team.Rows, 3)
	assert.Equal(t, []string{"Blue", "Red", "Green"}, keys(team))
	assert.Nil(t, team.Rows[0].InProgress)
	assert.Nil(t, team.Rows[0].StartRate)
	assert.Equal(t, 66.7, team.Rows[0].CompletionRate)
	assert.Equal(t, 0.0, team.Rows[2].CompletionRate, "zero starters yields zero rate")
	assert.Equal(t,
		[]string{"Team", "Total_Students", "Started", "Completed", "Completion_Rate_%"},
		team.Headers())

	course := BreakdownBy(sampleTable(), domain.BreakdownCourse)
	assert.Equal(t, []string{"Python", "Java", "SQL"}, keys(course))
}

func TestBreakdownBy_TiesKeepFirstSeenOrder(t *testing.T) {
	tbl := Normalize(tableOf(
		[]string{"team_name", "status"},
		[]string{"Zeta", "yes"},
		[]string{"Alpha", "yes"},
		[]string{"Mid", "yes"},
		[]string{"Mid", "yes"},
	), StrictClassifier)

	assert.Equal(t, []string{"Mid", "Zeta", "Alpha"}, keys(BreakdownBy(tbl, domain.BreakdownTeam)))
}

func TestBreakdownBy_MissingColumn(t *testing.T) {
	tbl := Normalize(tableOf([]string{"status"}, []string{"yes"}), StrictClassifier)
	for _, k := range domain.BreakdownKeys {
		assert.True(t, BreakdownBy(tbl, k).Empty(), string(k))
	}
}

func TestBreakdowns_Order(t *testing.T) {
	all := Breakdowns(sampleTable())
	require.Len(t, all, 3)
	assert.Equal(t, domain.BreakdownTutor, all[0].Key)
	assert.Equal(t, domain.BreakdownTeam, all[1].Key)
	assert.Equal(t, domain.BreakdownCourse, all[2].Key)
}

func TestValidateKey(t *testing.T) {
	k, err := ValidateKey("tutor")
	require.NoError(t, err)
	assert.Equal(t, domain.BreakdownTutor, k)

	_, err = ValidateKey("month")
	assert.ErrorIs(t, err, ErrUnknownBreakdown)
}

func TestPercent(t *testing.T) {
	tests := []struct {
		part, whole int
		want        float64
	}{
		{0, 0, 0},
		{3, 0, 0},
		{1, 3, 33.3},
		{2, 3, 66.7},
		{1, 8, 12.5},
		{1, 16, 6.2},
		{5, 16, 31.2},
		{7, 16, 43.8},
		{23, 2000, 1.1},
		{29, 200, 14.5},
		{5, 5, 100},
		{7, 5, 100},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.part, tt.whole), func(t *testing.T) {
			assert.Equal(t, tt.want, percent(tt.part, tt.whole))
		})
	}
}

// randomTable builds a raw table with a fixed seed covering every status,
// date and null combination the normalizer distinguishes.
func randomTable(seed int64, n int) *domain.Table {
	rnd := rand.New(rand.NewSource(seed))
	statuses := []string{"Started", "not started", "yes", "no", "", "<null>", "Start soon"}
	starts := []string{"", "2024-03-01", "2024", "<null>", "nan"}
	completes := []string{"", "2024-04-01", "NaT", "None", "nan", "<null>"}
	names := []string{"Ravi", "Meera", "Anil", "<null>"}
	teams := []string{"Blue", "Red", "<null>"}
	courses := []string{"Python", "Java", "SQL"}

	pick := func(xs []string) string { return xs[rnd.Intn(len(xs))] }

	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{pick(statuses), pick(starts), pick(completes), pick(names), pick(teams), pick(courses)}
	}
	return tableOf([]string{"status", "started_date", "completed_date", "tutor_name", "team_name", "course"}, rows...)
}

func keys(b domain.GroupBreakdown) []string {
	out := make([]string, 0, len(b.Rows))
	for _, r := range b.Rows {
		out = append(out, r.Key)
	}
	return out
}

func TestAggregationProperties(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		for _, c := range []StatusClassifier{StrictClassifier, LooseClassifier} {
			t.Run(fmt.Sprintf("%s/seed-%d", c.Name, seed), func(t *testing.T) {
				tbl := Normalize(randomTable(seed, 1+int(seed)*7), c)
				s := Summarize(tbl)

				assert.Equal(t, s.TotalStudents, s.Started+s.NotStarted)
				assert.Equal(t, s.Started, s.Completed+s.InProgress)
				assert.GreaterOrEqual(t, s.StartRate, 0.0)
				assert.LessOrEqual(t, s.StartRate, 100.0)
				assert.GreaterOrEqual(t, s.CompletionRate, 0.0)
				assert.LessOrEqual(t, s.CompletionRate, 100.0)

				for _, r := range tbl.Rows {
					clean := r[domain.ColumnStatusClean].Text
					assert.Contains(t, []string{"Started", "Not Started"}, clean)
				}

				for _, k := range domain.BreakdownKeys {
					b := BreakdownBy(tbl, k)

					distinct := map[string]bool{}
					nonNull := 0
					for _, r := range tbl.Rows {
						if v := r[string(k)]; !v.Null {
							distinct[v.Text] = true
							nonNull++
						}
					}
					assert.Len(t, b.Rows, len(distinct))

					sum := 0
					for i, row := range b.Rows {
						sum += row.TotalStudents
						assert.GreaterOrEqual(t, row.CompletionRate, 0.0)
						assert.LessOrEqual(t, row.CompletionRate, 100.0)
						if row.StartRate != nil {
							assert.GreaterOrEqual(t, *row.StartRate, 0.0)
							assert.LessOrEqual(t, *row.StartRate, 100.0)
						}
						if i > 0 {
							assert.GreaterOrEqual(t, b.Rows[i-1].TotalStudents, row.TotalStudents)
						}
					}
					assert.Equal(t, nonNull, sum)
				}

				again := Normalize(tbl, c)
				assert.Equal(t, tbl.Rows, again.Rows)
			})
		}
	}
}
