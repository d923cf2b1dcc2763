package ingest

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	apperrors "servicepulse/internal/errors"
	"servicepulse/pkg/contracts/domain"
)

// ErrUnsupportedFormat is the cause of every DetectFormat rejection
var ErrUnsupportedFormat = errors.New("unsupported file type")

// Format is an uploadable file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat maps a file name to its format by extension
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt", "":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", apperrors.NewAppError(apperrors.ErrTypeValidation,
			fmt.Sprintf("Unsupported file type %q: upload a .csv or .xlsx file", filepath.Ext(name)),
			ErrUnsupportedFormat)
	}
}

// ParseFile parses an uploaded file, choosing the parser from its name
func ParseFile(name string, r io.Reader) (*domain.Table, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatXLSX:
		return ParseXLSX(r)
	default:
		return ParseCSV(r)
	}
}
