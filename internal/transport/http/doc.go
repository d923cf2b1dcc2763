// Package http implements the HTTP handlers of the enrollment dashboard.
// Handlers stay thin: they parse the request, call the dashboard service
// and render either a JSON envelope or an RFC 7807 problem.
//
// # Routes
//
//	GET    /                          dashboard page
//	POST   /ui/{action}               page form actions (source, fetch, upload, filter, clear)
//	GET    /api/dashboard/source      configured source
//	PUT    /api/dashboard/source      set the Apps Script URL or select Google Sheets
//	POST   /api/dashboard/fetch       load from the configured source
//	POST   /api/dashboard/upload      load a .csv or .xlsx file (multipart field "file")
//	DELETE /api/dashboard             clear the loaded table
//	PUT    /api/dashboard/filter      set the month filter
//	GET    /api/dashboard/overview    everything the page shows
//	GET    /api/dashboard/summary     KPI summary of the filtered view
//	GET    /api/dashboard/breakdowns/{key}  tutor, team or course breakdown
//	GET    /api/dashboard/months      month filter choices
//	GET    /api/dashboard/records     paged raw rows
//	GET    /api/dashboard/export/csv  filtered view as CSV
//	GET    /api/dashboard/export/xlsx multi-sheet workbook report
//	GET    /api/reports               reports saved in the export directory
//	POST   /api/reports               save the current view as workbook and/or CSV
//	GET    /api/reports/{name}        download a saved report
//	GET    /api/health[/ready|/live]  health checks
//	GET    /api/version               build information
//	GET    /metrics                   Prometheus scrape endpoint
//
// # Responses
//
// Successful JSON responses use the envelope
//
//	{"status": "success", "data": ...}
//
// and failures follow RFC 7807:
//
//	{
//	    "type": "/errors/data/not-loaded",
//	    "title": "Conflict",
//	    "status": 409,
//	    "detail": "No data loaded. Fetch from the source or upload a file first",
//	    "instance": "/api/dashboard/summary"
//	}
package http
