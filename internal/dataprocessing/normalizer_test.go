package dataprocessing

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"servicepulse/pkg/contracts/domain"
)

// tableOf builds a table from string rows; "<null>" becomes a null cell
func tableOf(columns []string, rows ...[]string) *domain.Table {
	t := domain.NewTable(columns...)
	for _, row := range rows {
		rec := make(domain.Record, len(columns))
		for i, c := range columns {
			if row[i] == "<null>" {
				rec[c] = domain.Null()
			} else {
				rec[c] = domain.Text(row[i])
			}
		}
		t.Append(rec)
	}
	return t
}

func column(t *domain.Table, name string) []string {
	out := make([]string, 0, t.Len())
	for _, r := range t.Rows {
		out = append(out, r[name].String())
	}
	return out
}

func TestStatusClassifier_Classify(t *testing.T) {
	tests := []struct {
		raw    string
		strict domain.StartStatus
		loose  domain.StartStatus
	}{
		{"Started", domain.StatusStarted, domain.StatusStarted},
		{"  STARTED  ", domain.StatusStarted, domain.StatusStarted},
		{"not started", domain.StatusNotStarted, domain.StatusStarted},
		{"Not Started", domain.StatusNotStarted, domain.StatusStarted},
		{"yes", domain.StatusStarted, domain.StatusStarted},
		{"Yes - week 2", domain.StatusStarted, domain.StatusStarted},
		{"will start soon", domain.StatusNotStarted, domain.StatusStarted},
		{"no", domain.StatusNotStarted, domain.StatusNotStarted},
		{"", domain.StatusNotStarted, domain.StatusNotStarted},
		{"pending", domain.StatusNotStarted, domain.StatusNotStarted},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.strict, StrictClassifier.Classify(tt.raw), "strict")
			assert.Equal(t, tt.loose, LooseClassifier.Classify(tt.raw), "loose")
		})
	}
}

func TestClassifierFor(t *testing.T) {
	c, err := ClassifierFor("")
	require.NoError(t, err)
	assert.Equal(t, "strict", c.Name)

	c, err = ClassifierFor(" Loose ")
	require.NoError(t, err)
	assert.Equal(t, "loose", c.Name)

	_, err = ClassifierFor("fuzzy")
	assert.Error(t, err)
}

func TestNormalize_ThreeRowExample(t *testing.T) {
	raw := tableOf(
		[]string{"student_name", "status", "completed_date"},
		[]string{"A", "Started", "2023-01-01"},
		[]string{"B", "not started", ""},
		[]string{"C", "yes", "NaT"},
	)

	got := Normalize(raw, StrictClassifier)

	assert.Equal(t, []string{"Started", "Not Started", "Started"}, column(got, domain.ColumnStatusClean))
	assert.Equal(t, []string{"true", "false", "false"}, column(got, domain.ColumnIsCompleted))
	assert.Equal(t, []string{"Completed", "In Progress", "In Progress"}, column(got, domain.ColumnCompletionStatus))

	s := Summarize(got)
	assert.Equal(t, 3, s.TotalStudents)
	assert.Equal(t, 2, s.Started)
	assert.Equal(t, 1, s.NotStarted)
	assert.Equal(t, 1, s.Completed)
	assert.Equal(t, 1, s.InProgress)
	assert.Equal(t, 66.7, s.StartRate)
	assert.Equal(t, 33.3, s.CompletionRate)
}

func TestNormalize_StartedDateOverridesStatus(t *testing.T) {
	tests := []struct {
		name        string
		startedDate string
		want        string
	}{
		{"full date", "2024-03-01", "Started"},
		{"padded date", "  2024-03-01  ", "Started"},
		{"four characters", "2024", "Not Started"},
		{"sentinel", "nan", "Not Started"},
		{"null", "<null>", "Not Started"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := tableOf(
				[]string{"Status", "Started_Date"},
				[]string{"Not Started", tt.startedDate},
			)
			got := Normalize(raw, StrictClassifier)
			assert.Equal(t, tt.want, got.Rows[0][domain.ColumnStatusClean].Text)
		})
	}
}

func TestNormalize_CompletionSentinels(t *testing.T) {
	raw := tableOf(
		[]string{"Status", "Completed_Date"},
		[]string{"yes", ""},
		[]string{"yes", "nan"},
		[]string{"yes", "None"},
		[]string{"yes", "NaT"},
		[]string{"yes", "<null>"},
		[]string{"yes", "   "},
		[]string{"yes", "15/04/2024"},
	)

	got := Normalize(raw, StrictClassifier)
	assert.Equal(t,
		[]string{"false", "false", "false", "false", "false", "false", "true"},
		column(got, domain.ColumnIsCompleted))
}

func TestNormalize_ExportHeaders(t *testing.T) {
	raw := tableOf(
		[]string{"SL NO", "STUDENT NAME", "COURSE", "INDIVIDUAL - STARTED / NOT STARTED", " STARTED DATE", "COURSE COMPLETED DATE", "TUTOR NAME", "TEAM NAME", "REMARKS"},
		[]string{"1", "Asha", "Python", "Started", "", "", "Ravi", "Blue", "x"},
	)

	got := Normalize(raw, StrictClassifier)

	assert.Equal(t, []string{
		domain.ColumnSerial, domain.ColumnStudentName, domain.ColumnCourse, domain.ColumnStatus,
		domain.ColumnStartedDate, domain.ColumnCompletedDate, domain.ColumnTutor, domain.ColumnTeam,
		"REMARKS",
		domain.ColumnStatusClean, domain.ColumnIsCompleted, domain.ColumnCompletionStatus,
	}, got.Columns)
	assert.Equal(t, "Ravi", got.Rows[0][domain.ColumnTutor].Text)
	assert.Equal(t, "x", got.Rows[0]["REMARKS"].Text)
	_, stale := got.Rows[0]["TUTOR NAME"]
	assert.False(t, stale)
}

func TestNormalize_APIHeaders(t *testing.T) {
	raw := tableOf(
		[]string{"sl_no", "tutor_name", "team_name", "sheet_name", "new_old", "status"},
		[]string{"1", "Ravi", "Blue", "Jan 2024", "New", "yes"},
	)

	got := Normalize(raw, StrictClassifier)

	assert.True(t, got.HasColumn(domain.ColumnMonth))
	assert.True(t, got.HasColumn(domain.ColumnNewOld))
	assert.Equal(t, "Jan 2024", got.Rows[0][domain.ColumnMonth].Text)
}

func TestNormalize_MissingColumns(t *testing.T) {
	raw := tableOf([]string{"student_name"}, []string{"A"}, []string{"B"})

	got := Normalize(raw, StrictClassifier)

	assert.Equal(t, []string{"Not Started", "Not Started"}, column(got, domain.ColumnStatusClean))
	assert.Equal(t, []string{"false", "false"}, column(got, domain.ColumnIsCompleted))
	assert.Equal(t, []string{"In Progress", "In Progress"}, column(got, domain.ColumnCompletionStatus))
}

func TestNormalize_EmptyTableUnchanged(t *testing.T) {
	raw := domain.NewTable("status")
	got := Normalize(raw, StrictClassifier)
	assert.Same(t, raw, got)
	assert.Equal(t, []string{"status"}, got.Columns)

	var nilTable *domain.Table
	assert.Nil(t, Normalize(nilTable, StrictClassifier))
}

func TestNormalize_DoesNotModifyInput(t *testing.T) {
	raw := tableOf([]string{"status", "tutor_name"}, []string{"yes", "Ravi"})

	_ = Normalize(raw, StrictClassifier)

	assert.Equal(t, []string{"status", "tutor_name"}, raw.Columns)
	assert.Equal(t, "yes", raw.Rows[0]["status"].Text)
	_, derived := raw.Rows[0][domain.ColumnStatusClean]
	assert.False(t, derived)
}

func TestNormalize_Idempotent(t *testing.T) {
	raw := tableOf(
		[]string{"status", "started_date", "completed_date", "tutor_name", "course"},
		[]string{"Started", "", "2023-01-01", "Ravi", "Python"},
		[]string{"not started", "2024-03-01", "", "Meera", "Java"},
		[]string{"maybe", "", "NaT", "<null>", "Python"},
	)

	for _, c := range []StatusClassifier{StrictClassifier, LooseClassifier} {
		t.Run(c.Name, func(t *testing.T) {
			once := Normalize(raw, c)
			twice := Normalize(once, c)
			assert.Equal(t, once.Columns, twice.Columns)
			assert.Equal(t, once.Rows, twice.Rows)
		})
	}
}

func TestNormalize_ExistingStatusCleanWithoutStatus(t *testing.T) {
	raw := tableOf(
		[]string{domain.ColumnStatusClean},
		[]string{"Started"},
		[]string{"Not Started"},
	)
	got := Normalize(raw, StrictClassifier)
	assert.Equal(t, []string{"Started", "Not Started"}, column(got, domain.ColumnStatusClean))
}

func TestNormalizer_UsesClassifier(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	raw := tableOf([]string{"status"}, []string{"not started"})

	strict := NewNormalizer(StrictClassifier, logger).Normalize(raw)
	loose := NewNormalizer(LooseClassifier, logger).Normalize(raw)
	fallback := NewNormalizer(StatusClassifier{}, nil).Normalize(raw)

	assert.Equal(t, "Not Started", strict.Rows[0][domain.ColumnStatusClean].Text)
	assert.Equal(t, "Started", loose.Rows[0][domain.ColumnStatusClean].Text)
	assert.Equal(t, "Not Started", fallback.Rows[0][domain.ColumnStatusClean].Text)
}
