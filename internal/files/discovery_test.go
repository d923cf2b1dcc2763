package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0644))
	}
}

func TestParseName(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		date string
		ok   bool
	}{
		{"service_data_20240315.csv", KindCSV, "2024-03-15", true},
		{"Service_Report_20231201.xlsx", KindWorkbook, "2023-12-01", true},
		{"service_data_2024.csv", "", "", false},
		{"Service_Report_20240315.csv", "", "", false},
		{"notes.txt", "", "", false},
		{"../service_data_20240315.csv", "", "", false},
		{"sub/Service_Report_20240315.xlsx", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, date, ok := ParseName(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, kind)
			if tt.ok {
				assert.Equal(t, tt.date, date.Format("2006-01-02"))
			}
		})
	}
}

func TestFindReports(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"service_data_20240101.csv",
		"Service_Report_20240301.xlsx",
		"service_data_20240301.csv",
		"readme.md",
		"Service_Report_bad.xlsx",
	)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "Service_Report_20240401.xlsx"), 0755))

	reports, err := NewDiscovery(dir, nil).FindReports()
	require.NoError(t, err)

	var names []string
	for _, r := range reports {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{
		"Service_Report_20240301.xlsx",
		"service_data_20240301.csv",
		"service_data_20240101.csv",
	}, names)
	assert.Equal(t, filepath.Join(dir, "service_data_20240101.csv"), reports[2].Path)
	assert.Equal(t, int64(len("service_data_20240101.csv")), reports[2].Size)
}

func TestFindReports_MissingDirectory(t *testing.T) {
	reports, err := NewDiscovery(filepath.Join(t.TempDir(), "absent"), nil).FindReports()
	require.NoError(t, err)
	assert.Empty(t, reports)
	assert.NotNil(t, reports)
}

func TestFindByKind(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "service_data_20240101.csv", "Service_Report_20240301.xlsx")

	d := NewDiscovery(dir, nil)
	csvs, err := d.FindByKind(KindCSV)
	require.NoError(t, err)
	require.Len(t, csvs, 1)
	assert.Equal(t, KindCSV, csvs[0].Kind)

	books, err := d.FindByKind(KindWorkbook)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Service_Report_20240301.xlsx", books[0].Name)
}

func TestLookup(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "service_data_20240101.csv", "notes.txt")
	d := NewDiscovery(dir, nil)

	f, err := d.Lookup("service_data_20240101.csv")
	require.NoError(t, err)
	assert.Equal(t, KindCSV, f.Kind)
	assert.Equal(t, dir, d.Dir())

	for _, name := range []string{"notes.txt", "service_data_20240102.csv", "../service_data_20240101.csv", ""} {
		_, err := d.Lookup(name)
		assert.ErrorIs(t, err, ErrReportNotFound, name)
	}
}

func TestGetLatestFile(t *testing.T) {
	_, ok := GetLatestFile(nil)
	assert.False(t, ok)

	now := time.Now()
	files := []FileInfo{
		{Name: "a", ModTime: now.Add(-2 * time.Hour)},
		{Name: "b", ModTime: now},
		{Name: "c", ModTime: now.Add(-time.Hour)},
	}
	latest, ok := GetLatestFile(files)
	require.True(t, ok)
	assert.Equal(t, "b", latest.Name)
}
