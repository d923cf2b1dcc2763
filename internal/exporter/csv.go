package exporter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"servicepulse/pkg/contracts/domain"
)

// WriteCSV writes t as CSV with a header row. Null cells are empty.
func WriteCSV(w io.Writer, t *domain.Table) error {
	writer := csv.NewWriter(w)
	if t == nil {
		writer.Flush()
		return writer.Error()
	}

	if err := writer.Write(t.Columns); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, record := range t.Strings() {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// EncodeCSV returns t as CSV bytes
func EncodeCSV(t *domain.Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileWriter saves exports under an output directory
type FileWriter struct {
	outputDir string
	logger    *slog.Logger
}

// NewFileWriter creates a writer rooted at outputDir
func NewFileWriter(outputDir string, logger *slog.Logger) *FileWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileWriter{
		outputDir: outputDir,
		logger:    logger.With(slog.String("component", "file_writer")),
	}
}

// WriteTable saves t as CSV and returns the written path
func (w *FileWriter) WriteTable(name string, t *domain.Table) (string, error) {
	data, err := EncodeCSV(t)
	if err != nil {
		return "", err
	}
	return w.WriteFile(name, data)
}

// WriteFile saves data and returns the written path
func (w *FileWriter) WriteFile(name string, data []byte) (string, error) {
	fullPath := w.resolvePath(name)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	w.logger.Info("export written",
		slog.String("file_path", fullPath),
		slog.Int("bytes", len(data)))
	return fullPath, nil
}

// resolvePath keeps absolute paths and places relative ones under the output directory
func (w *FileWriter) resolvePath(name string) string {
	if filepath.IsAbs(name) || w.outputDir == "" {
		return name
	}
	return filepath.Join(w.outputDir, name)
}
