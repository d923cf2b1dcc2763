package files

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"servicepulse/internal/config"
)

// Kind is the format of a saved report
type Kind string

const (
	KindCSV      Kind = "csv"
	KindWorkbook Kind = "xlsx"
)

// ErrReportNotFound is returned when a saved report does not exist or the
// name is not a report name
var ErrReportNotFound = errors.New("report not found")

var kindPatterns = map[Kind]string{
	KindCSV:      config.CSVExportPattern,
	KindWorkbook: config.ReportExportPattern,
}

// FileInfo represents a saved report
type FileInfo struct {
	Name       string    `json:"name"`
	Path       string    `json:"-"`
	Kind       Kind      `json:"kind"`
	ReportDate time.Time `json:"report_date"`
	Size       int64     `json:"size"`
	ModTime    time.Time `json:"modified_at"`
}

// Discovery finds saved reports in one directory
type Discovery struct {
	dir    string
	logger *slog.Logger
}

// NewDiscovery creates a discovery over dir
func NewDiscovery(dir string, logger *slog.Logger) *Discovery {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discovery{
		dir:    dir,
		logger: logger.With(slog.String("component", "report_discovery")),
	}
}

// Dir is the directory searched
func (d *Discovery) Dir() string {
	return d.dir
}

// ParseName returns the kind and date encoded in a report file name
func ParseName(name string) (Kind, time.Time, bool) {
	if name != filepath.Base(name) {
		return "", time.Time{}, false
	}
	for kind, pattern := range kindPatterns {
		prefix, suffix, ok := strings.Cut(pattern, "%s")
		if !ok || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, prefix), suffix)
		date, err := time.Parse(config.ExportDateLayout, stamp)
		if err != nil {
			continue
		}
		return kind, date, true
	}
	return "", time.Time{}, false
}

// FindReports lists every saved report, newest report date first.
// A missing directory yields no reports.
func (d *Discovery) FindReports() ([]FileInfo, error) {
	entries, err := os.ReadDir(d.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []FileInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", d.dir, err)
	}

	reports := []FileInfo{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		kind, date, ok := ParseName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			d.logger.Warn("skipping unreadable report",
				slog.String("name", entry.Name()),
				slog.String("error", err.Error()))
			continue
		}
		reports = append(reports, FileInfo{
			Name:       entry.Name(),
			Path:       filepath.Join(d.dir, entry.Name()),
			Kind:       kind,
			ReportDate: date,
			Size:       info.Size(),
			ModTime:    info.ModTime(),
		})
	}

	sort.SliceStable(reports, func(i, j int) bool {
		if !reports[i].ReportDate.Equal(reports[j].ReportDate) {
			return reports[i].ReportDate.After(reports[j].ReportDate)
		}
		return reports[i].Name < reports[j].Name
	})
	return reports, nil
}

// FindByKind lists the saved reports of one kind, newest first
func (d *Discovery) FindByKind(kind Kind) ([]FileInfo, error) {
	all, err := d.FindReports()
	if err != nil {
		return nil, err
	}
	out := []FileInfo{}
	for _, f := range all {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out, nil
}

// Lookup resolves a report name inside the directory
func (d *Discovery) Lookup(name string) (FileInfo, error) {
	kind, date, ok := ParseName(name)
	if !ok {
		return FileInfo{}, fmt.Errorf("%w: %q", ErrReportNotFound, name)
	}
	path := filepath.Join(d.dir, name)
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && info.IsDir()) {
		return FileInfo{}, fmt.Errorf("%w: %q", ErrReportNotFound, name)
	}
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return FileInfo{
		Name:       name,
		Path:       path,
		Kind:       kind,
		ReportDate: date,
		Size:       info.Size(),
		ModTime:    info.ModTime(),
	}, nil
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if file.ModTime.After(latest.ModTime) {
			latest = file
		}
	}
	return latest, true
}
