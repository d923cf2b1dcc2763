package config

import "time"

// Application constants
const (
	AppName    = "Service Pulse"
	AppVersion = "1.0.0"

	// Status classifier policies
	StatusPolicyStrict = "strict"
	StatusPolicyLoose  = "loose"

	// Network
	DefaultFetchTimeout = 30 * time.Second
	FetchAction         = "getData"

	// Uploads
	DefaultMaxUploadBytes = 10 << 20

	// Export file names, formatted with the current date
	CSVExportPattern    = "service_data_%s.csv"
	ReportExportPattern = "Service_Report_%s.xlsx"
	ExportDateLayout    = "20060102"

	// Filter value meaning no month restriction
	AllTime = "All Time"
)
