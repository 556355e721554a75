package handler

import (
	"net/http"
	"runtime"
	"time"

	"farmgate-api/internal/service"
	"farmgate-api/pkg/apierror"
	"farmgate-api/pkg/response"
)

// MetricsHandler exposes operational and business counters to administrators.
type MetricsHandler struct {
	metrics   *service.MetricsService
	audit     *service.AuditLogger
	storeKind string
	startTime time.Time
}

// NewMetricsHandler creates a new metrics handler.
func NewMetricsHandler(metrics *service.MetricsService, audit *service.AuditLogger, storeKind string) *MetricsHandler {
	return &MetricsHandler{
		metrics:   metrics,
		audit:     audit,
		storeKind: storeKind,
		startTime: time.Now(),
	}
}

// GetStats handles GET /api/v1/metrics
func (h *MetricsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	// System info
	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["store"] = h.storeKind

	// Memory stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
		"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
		"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
		"heap_alloc_mb":  float64(memStats.HeapAlloc) / 1024 / 1024,
		"heap_inuse_mb":  float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":         memStats.NumGC,
		"goroutines":     runtime.NumGoroutine(),
	}

	// Business counters
	counters, err := h.metrics.Snapshot(ctx)
	if err != nil {
		response.Error(w, apierror.InternalError("failed to read metrics"))
		return
	}
	stats["counters"] = counters
	stats["audit_entries_dropped"] = h.audit.Dropped()

	// Runtime info
	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}
