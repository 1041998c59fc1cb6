package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/iconidentify/ytmux/internal/progress"
	"github.com/iconidentify/ytmux/internal/repository"
)

var startTime = time.Now()

// TempStorage reports on the temporary artifact directory.
type TempStorage interface {
	Dir() string
	Writable() error
	FreeSpace() int64
}

// ToolChecker reports whether the external mux tool is usable.
type ToolChecker interface {
	IsAvailable() bool
}

// HubStats reports progress hub counters.
type HubStats interface {
	Stats() progress.Stats
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	jobRepo      repository.JobRepository
	storage      TempStorage
	tool         ToolChecker
	hub          HubStats
	minFreeBytes int64
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(
	jobRepo repository.JobRepository,
	storage TempStorage,
	tool ToolChecker,
	hub HubStats,
	minFreeBytes int64,
) *HealthHandler {
	return &HealthHandler{
		jobRepo:      jobRepo,
		storage:      storage,
		tool:         tool,
		hub:          hub,
		minFreeBytes: minFreeBytes,
	}
}

// HealthResponse is the JSON response for health checks.
type HealthResponse struct {
	Status    string               `json:"status"`
	Timestamp string               `json:"timestamp"`
	Checks    map[string]string    `json:"checks,omitempty"`
	Jobs      *repository.JobStats `json:"jobs,omitempty"`
	Progress  *progress.Stats      `json:"progress,omitempty"`
}

// Live handles GET /health - liveness check.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready - readiness check.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    make(map[string]string),
	}
	status := http.StatusOK

	fail := func(check, msg string) {
		resp.Checks[check] = msg
		resp.Status = "error"
		status = http.StatusServiceUnavailable
	}

	if err := h.storage.Writable(); err != nil {
		fail("storage", "not writable: "+err.Error())
	} else {
		resp.Checks["storage"] = "ok"
	}

	if h.tool.IsAvailable() {
		resp.Checks["ffmpeg"] = "ok"
	} else {
		fail("ffmpeg", "not found")
	}

	if free := h.storage.FreeSpace(); h.minFreeBytes > 0 && free > 0 && free < h.minFreeBytes {
		fail("disk", fmt.Sprintf("%d bytes free, need %d", free, h.minFreeBytes))
	} else {
		resp.Checks["disk"] = "ok"
	}

	stats, err := h.jobRepo.Stats(ctx)
	if err != nil {
		fail("jobs", err.Error())
	} else {
		resp.Jobs = stats
	}

	hubStats := h.hub.Stats()
	resp.Progress = &hubStats

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// SystemStats contains system resource statistics.
type SystemStats struct {
	Uptime        int64  `json:"uptime_seconds"`
	UptimeHuman   string `json:"uptime_human"`
	MemAllocMB    int64  `json:"mem_alloc_mb"`
	MemSysMB      int64  `json:"mem_sys_mb"`
	MemHeapMB     int64  `json:"mem_heap_mb"`
	NumGoroutines int    `json:"num_goroutines"`
	NumCPU        int    `json:"num_cpu"`
	ActiveJobs    int    `json:"active_jobs"`
	DiskFreeBytes int64  `json:"disk_free_bytes"`
	TempPath      string `json:"temp_path"`
}

// Stats handles GET /stats - system statistics.
func (h *HealthHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(startTime)

	stats := SystemStats{
		Uptime:        int64(uptime.Seconds()),
		UptimeHuman:   formatUptime(uptime),
		MemAllocMB:    int64(m.Alloc / 1024 / 1024),
		MemSysMB:      int64(m.Sys / 1024 / 1024),
		MemHeapMB:     int64(m.HeapAlloc / 1024 / 1024),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		DiskFreeBytes: h.storage.FreeSpace(),
		TempPath:      h.storage.Dir(),
	}
	if jobs, err := h.jobRepo.Stats(r.Context()); err == nil {
		stats.ActiveJobs = jobs.Total
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(stats)
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}
