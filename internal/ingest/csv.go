package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	apperrors "servicepulse/internal/errors"
	"servicepulse/pkg/contracts/domain"
)

// ParseCSV reads a comma separated file whose first record is the header
func ParseCSV(r io.Reader) (*domain.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperrors.NewParsingError("No columns to parse from file", err)
	}
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("Error tokenizing data: %v", err), err)
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("Error tokenizing data: %v", err), err)
	}

	t, err := rowsToTable(header, rows, 2)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("Error tokenizing data. %v", err), err)
	}
	return t, nil
}
