// Package config provides configuration management for Service Pulse.
//
// Configuration is loaded in layers: envconfig defaults and PULSE_* environment
// variables first, then an optional YAML file whose values apply wherever the
// matching environment variable is unset.
//
// # Environment Variables
//
//	PULSE_SERVER_PORT              HTTP listen port (default 8080)
//	PULSE_SOURCE_APPS_SCRIPT_URL   Apps Script web app answering ?action=getData
//	PULSE_SOURCE_FETCH_TIMEOUT     HTTP timeout for remote fetches (default 30s)
//	PULSE_SOURCE_SHEET_ID          Google Sheets spreadsheet ID
//	PULSE_SOURCE_STATUS_POLICY     strict or loose status classification
//	PULSE_EXPORT_MAX_UPLOAD_BYTES  upload size cap (default 10 MiB)
//	PULSE_CONFIG_FILE              explicit YAML file path
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Tests use config.Default(), which needs no environment.
package config
