package services

import (
	"errors"

	"servicepulse/internal/dataprocessing"
	"servicepulse/internal/ingest"
)

// Dashboard service errors
var (
	// ErrNoDataLoaded is returned by read operations before any load succeeded
	ErrNoDataLoaded = errors.New("no data loaded")

	// ErrSourceNotConfigured is returned by Fetch when no remote source is known
	ErrSourceNotConfigured = errors.New("no data source configured")

	// ErrUploadTooLarge is returned for uploads above the configured limit
	ErrUploadTooLarge = errors.New("upload exceeds size limit")

	// ErrUnsupportedFileType is returned for uploads that are neither CSV nor XLSX
	ErrUnsupportedFileType = ingest.ErrUnsupportedFormat

	// ErrUnknownBreakdown is returned for a breakdown key other than tutor, team or course
	ErrUnknownBreakdown = dataprocessing.ErrUnknownBreakdown
)
