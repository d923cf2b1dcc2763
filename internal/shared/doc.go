// Package shared holds helpers used by tests across the module.
//
// The testutil subpackage provides:
//
//	- a buffered slog handler for asserting on structured logs
//	- enrollment fixtures in the Apps Script JSON and CSV export layouts
//
// Production code must not import it.
package shared
