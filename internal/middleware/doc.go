// Package middleware contains the HTTP middleware chain of the dashboard
// server: request IDs, rate limiting, security headers, OpenTelemetry
// instrumentation and request validation.
package middleware
