// Package ingest loads raw enrollment tables from the supported sources.
//
// Remote sources implement Source:
//
//	- AppsScriptSource: GET <url>?action=getData returning {"data": [...]} or {"error": "..."}
//	- SheetsSource: a range of a Google Sheet read through the Sheets v4 API
//
// Uploaded files go through ParseFile, which dispatches on the extension to
// ParseCSV or ParseXLSX.
//
// Every failure is an *errors.AppError of type NETWORK or PARSING whose
// message can be shown to the user as is. Sources make a single attempt and
// never retry. The returned tables carry the source's own headers; renaming
// onto canonical columns is the normalizer's job.
package ingest
