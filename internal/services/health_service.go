package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"servicepulse/internal/session"
	"servicepulse/pkg/contracts"
)

// HealthService provides health check functionality
type HealthService struct {
	store     *session.Store
	outputDir string
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual component health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service over the dashboard session store
func NewHealthService(store *session.Store, outputDir string, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		store:     store,
		outputDir: outputDir,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "health check",
		slog.Duration("uptime", time.Since(hs.startTime)))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   contracts.Version,
	}
}

// ReadinessCheck reports whether the dashboard can serve data. A session
// without data or source is still ready; it is reported, not failed.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Services: map[string]ServiceHealth{
			"session": hs.checkSession(),
			"exports": hs.checkOutputDir(),
		},
	}
	for _, sh := range status.Services {
		if sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Runtime: map[string]interface{}{
			"uptime":         time.Since(hs.startTime).Seconds(),
			"go_version":     runtime.Version(),
			"goroutines":     runtime.NumGoroutine(),
			"heap_alloc":     mem.HeapAlloc,
			"num_gc":         mem.NumGC,
			"gomaxprocs":     runtime.GOMAXPROCS(0),
			"start_time":     hs.startTime.Format(time.RFC3339),
			"current_time":   time.Now().Format(time.RFC3339),
			"report_version": contracts.ReportFormatVersion,
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() contracts.VersionInfo {
	return contracts.GetVersionInfo()
}

func (hs *HealthService) checkSession() ServiceHealth {
	if hs.store == nil {
		return ServiceHealth{Status: "not_ready", Message: "session store not initialized"}
	}
	st := hs.store.Snapshot()
	switch {
	case st.HasData():
		return ServiceHealth{Status: "ready", Message: fmt.Sprintf("%d rows loaded", st.Table.Len())}
	case st.Source.Kind != session.SourceNone:
		return ServiceHealth{Status: "ready", Message: "source configured, no data loaded"}
	default:
		return ServiceHealth{Status: "ready", Message: "no source configured"}
	}
}

// checkOutputDir only fails when the output path exists and is not a directory
func (hs *HealthService) checkOutputDir() ServiceHealth {
	if hs.outputDir == "" {
		return ServiceHealth{Status: "ready", Message: "exports are download only"}
	}
	info, err := os.Stat(hs.outputDir)
	switch {
	case os.IsNotExist(err):
		return ServiceHealth{Status: "ready", Message: "output directory will be created on first export"}
	case err != nil:
		return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("Cannot access output directory: %v", err)}
	case !info.IsDir():
		return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("Output path is not a directory: %s", hs.outputDir)}
	default:
		return ServiceHealth{Status: "ready"}
	}
}
