package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"servicepulse/internal/files"
	"servicepulse/internal/shared/testutil"
)

func TestReportArchive_SaveListOpen(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	_, err := svc.Upload(ctx, "export.csv", testutil.ExportCSVReader(), int64(len(testutil.ExportCSV)))
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "reports")
	logger, _ := testutil.NewTestLogger(t)
	archive := NewReportArchive(svc, dir, logger)

	saved, err := archive.Save(ctx)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, "Service_Report_20240307.xlsx", saved[0].Name)
	assert.Equal(t, files.KindWorkbook, saved[0].Kind)
	assert.Equal(t, "service_data_20240307.csv", saved[1].Name)

	listed, err := archive.List(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	export, err := archive.Open(ctx, "service_data_20240307.csv")
	require.NoError(t, err)
	assert.Equal(t, ContentTypeCSV, export.ContentType)
	onDisk, err := os.ReadFile(filepath.Join(dir, "service_data_20240307.csv"))
	require.NoError(t, err)
	assert.Equal(t, onDisk, export.Data)

	book, err := archive.Open(ctx, "Service_Report_20240307.xlsx")
	require.NoError(t, err)
	assert.Equal(t, ContentTypeXLSX, book.ContentType)
}

func TestReportArchive_SaveOneKind(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	_, err := svc.Upload(ctx, "export.csv", testutil.ExportCSVReader(), int64(len(testutil.ExportCSV)))
	require.NoError(t, err)

	archive := NewReportArchive(svc, t.TempDir(), nil)
	saved, err := archive.Save(ctx, files.KindCSV)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, files.KindCSV, saved[0].Kind)

	_, err = archive.Save(ctx, files.Kind("pdf"))
	assert.ErrorContains(t, err, "unknown report kind")
}

func TestReportArchive_Errors(t *testing.T) {
	ctx := context.Background()
	archive := NewReportArchive(newService(t), t.TempDir(), nil)

	_, err := archive.Save(ctx)
	assert.ErrorIs(t, err, ErrNoDataLoaded)

	_, err = archive.Open(ctx, "../../etc/passwd")
	assert.ErrorIs(t, err, files.ErrReportNotFound)

	listed, err := archive.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, listed)
}
