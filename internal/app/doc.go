// Package app wires the enrollment dashboard server together: configuration,
// logging, OpenTelemetry, the session store, the dashboard and health
// services, the chi router with its middleware chain, and the HTTP server
// lifecycle.
//
// # Usage
//
//	a, err := app.NewApplication(nil)
//	if err != nil {
//	    return err
//	}
//	return a.Run()
//
// Run listens on the configured port and shuts down gracefully on SIGINT or
// SIGTERM. Initialization errors are returned; the package never exits the
// process itself.
package app
