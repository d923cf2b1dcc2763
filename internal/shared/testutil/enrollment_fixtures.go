package testutil

import (
	"encoding/json"
	"strings"
	"testing"
)

// APIRow is one enrollment as the Apps Script endpoint returns it
type APIRow map[string]any

// SampleAPIRows returns enrollments covering started, not started, completed
// and start-date override cases across two months.
func SampleAPIRows() []APIRow {
	return []APIRow{
		{"sl_no": 1, "student_name": "Asha", "course": "Python", "status": "Started", "started_date": "", "completed_date": "2024-01-20", "tutor_name": "Ravi", "team_name": "Blue", "sheet_name": "Jan 2024"},
		{"sl_no": 2, "student_name": "Bala", "course": "Python", "status": "yes", "started_date": "", "completed_date": "", "tutor_name": "Ravi", "team_name": "Blue", "sheet_name": "Jan 2024"},
		{"sl_no": 3, "student_name": "Chitra", "course": "Java", "status": "not started", "started_date": "", "completed_date": "", "tutor_name": "Meera", "team_name": "Red", "sheet_name": "Feb 2024"},
		{"sl_no": 4, "student_name": "Dev", "course": "Java", "status": "Not Started", "started_date": "2024-02-02", "completed_date": nil, "tutor_name": "Ravi", "team_name": "Red", "sheet_name": "Feb 2024"},
	}
}

// APIBody marshals rows into the {"data": [...]} envelope
func APIBody(t *testing.T, rows []APIRow) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{"data": rows})
	if err != nil {
		t.Fatalf("marshal api body: %v", err)
	}
	return body
}

// ExportCSV is a spreadsheet export using the upper-case header layout
const ExportCSV = `SL NO,STUDENT NAME,COURSE,CONTACT NUMBER,PACKAGE (HOURS),MAIL ID,JOINING DATE,INDIVIDUAL - STARTED / NOT STARTED, STARTED DATE,COURSE COMPLETED DATE,TUTOR NAME,TEAM NAME
1,Asha,Python,900001,40,asha@example.com,2024-01-02,Started,2024-01-05,2024-02-10,Ravi,Blue
2,Bala,Python,900002,40,bala@example.com,2024-01-03,Not Started,,,Ravi,Blue
3,Chitra,Java,900003,30,chitra@example.com,2024-01-04,yes,,,Meera,Red
`

// ExportCSVReader returns ExportCSV as a reader
func ExportCSVReader() *strings.Reader {
	return strings.NewReader(ExportCSV)
}
