// Package services implements the dashboard's use cases.
//
// DashboardService drives the pipeline for every user action: it builds a
// source from the session configuration, loads and normalizes a table,
// stores it in the session and answers summary, breakdown, record and
// export requests over the current filtered view. Read operations return
// ErrNoDataLoaded until a load succeeds.
//
// HealthService reports liveness, readiness and build information.
package services
