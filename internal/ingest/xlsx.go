package ingest

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	apperrors "servicepulse/internal/errors"
	"servicepulse/pkg/contracts/domain"
)

// ParseXLSX reads the first worksheet of a workbook; its first row is the header
func ParseXLSX(r io.Reader) (*domain.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("Error opening workbook: %v", err), err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewParsingError("Workbook has no worksheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("Error reading sheet %q: %v", sheets[0], err), err)
	}
	if len(rows) == 0 || isBlank(rows[0]) {
		return nil, apperrors.NewParsingError("No columns to parse from file", nil).
			WithContext("sheet", sheets[0])
	}

	header := rows[0]
	body := rows[1:]
	// excelize drops trailing empty cells, so a row can only be wider than
	// the header when cells sit beyond the last header column
	for i, row := range body {
		if len(row) > len(header) {
			body[i] = row[:len(header)]
		}
	}

	t, err := rowsToTable(header, body, 2)
	if err != nil {
		return nil, apperrors.NewParsingError(err.Error(), err)
	}
	return t, nil
}
