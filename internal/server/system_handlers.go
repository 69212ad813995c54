// Package server provides the HTTP server and routing for Panorama.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/niveshio/panorama/internal/clients/marketstatus"
	"github.com/niveshio/panorama/internal/database"
	"github.com/niveshio/panorama/internal/scheduler"
)

// SystemHandlers handles system-wide monitoring and operations endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	databases   map[string]*database.DB
	stream      *marketstatus.Stream
	sched       *scheduler.Scheduler

	// Jobs for manual triggering (set after job registration in main.go)
	refreshJob     scheduler.Job
	cleanupJob     scheduler.Job
	maintenanceJob scheduler.Job
	backupJob      scheduler.Job
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	databases map[string]*database.DB,
	stream *marketstatus.Stream,
	sched *scheduler.Scheduler,
) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
		databases:   databases,
		stream:      stream,
		sched:       sched,
	}
}

// SetJobs registers job references for manual triggering. A nil job keeps
// its trigger endpoint responding with an unavailable status.
func (h *SystemHandlers) SetJobs(refresh, cleanup, maintenance, backup scheduler.Job) {
	h.refreshJob = refresh
	h.cleanupJob = cleanup
	h.maintenanceJob = maintenance
	h.backupJob = backup
}

// HealthResponse reports per-database readiness.
type HealthResponse struct {
	Status    string            `json:"status"`
	Databases map[string]string `json:"databases"`
}

// DatabaseInfo summarizes one database file for the system snapshot.
type DatabaseInfo struct {
	SizeBytes     int64 `json:"size_bytes"`
	WALSizeBytes  int64 `json:"wal_size_bytes"`
	PageCount     int64 `json:"page_count"`
	FreelistCount int64 `json:"freelist_count"`
}

// MarketStreamInfo summarizes the market status feed.
type MarketStreamInfo struct {
	Connected bool                                   `json:"connected"`
	Exchanges map[string]marketstatus.ExchangeStatus `json:"exchanges"`
	OpenCount int                                    `json:"open_count"`
}

// SystemResponse is the operational snapshot returned by GET /api/system.
type SystemResponse struct {
	Status        string                  `json:"status"`
	UptimeSeconds float64                 `json:"uptime_seconds"`
	CPUPercent    float64                 `json:"cpu_percent"`
	MemoryPercent float64                 `json:"memory_percent"`
	Goroutines    int                     `json:"goroutines"`
	ScheduledJobs int                     `json:"scheduled_jobs"`
	DataDirMB     float64                 `json:"data_dir_mb"`
	Databases     map[string]DatabaseInfo `json:"databases"`
	MarketStream  MarketStreamInfo        `json:"market_stream"`
}

// HandleHealth checks every open database and reports degraded with a 503
// when any of them fails its connectivity check.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Databases: make(map[string]string, len(h.databases)),
	}

	for name, db := range h.databases {
		if err := db.QuickCheck(r.Context()); err != nil {
			h.log.Warn().Err(err).Str("database", name).Msg("Database health check failed")
			response.Status = "degraded"
			response.Databases[name] = err.Error()
			continue
		}
		response.Databases[name] = "ok"
	}

	status := http.StatusOK
	if response.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	h.writeJSON(w, status, response)
}

// HandleSystem returns the operational snapshot: process stats, database
// sizes, market stream state, and scheduler job count.
func (h *SystemHandlers) HandleSystem(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, memPercent := h.getSystemStats()

	response := SystemResponse{
		Status:        "running",
		UptimeSeconds: time.Since(h.startupTime).Seconds(),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Goroutines:    runtime.NumGoroutine(),
		DataDirMB:     h.getDirSize(h.dataDir),
		Databases:     make(map[string]DatabaseInfo, len(h.databases)),
	}

	if h.sched != nil {
		response.ScheduledJobs = h.sched.JobCount()
	}

	for name, db := range h.databases {
		stats, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", name).Msg("Failed to get database stats")
			continue
		}
		response.Databases[name] = DatabaseInfo{
			SizeBytes:     stats.SizeBytes,
			WALSizeBytes:  stats.WALSizeBytes,
			PageCount:     stats.PageCount,
			FreelistCount: stats.FreelistCount,
		}
	}

	response.MarketStream = h.marketStreamInfo()

	h.writeJSON(w, http.StatusOK, response)
}

// marketStreamInfo snapshots the market status feed. A nil stream (not
// configured) reports as disconnected with no exchanges.
func (h *SystemHandlers) marketStreamInfo() MarketStreamInfo {
	info := MarketStreamInfo{
		Exchanges: map[string]marketstatus.ExchangeStatus{},
	}

	if h.stream == nil {
		return info
	}

	info.Connected = h.stream.IsConnected()
	info.Exchanges = h.stream.AllStatuses()
	for _, status := range info.Exchanges {
		if status.Status == marketstatus.StatusOpen {
			info.OpenCount++
		}
	}

	return info
}

// HandleTriggerRefresh triggers the consolidation refresh sweep immediately.
// POST /api/system/jobs/refresh
func (h *SystemHandlers) HandleTriggerRefresh(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, h.refreshJob, "portfolio refresh")
}

// HandleTriggerCleanup triggers the client data cleanup job immediately.
// POST /api/system/jobs/cleanup
func (h *SystemHandlers) HandleTriggerCleanup(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, h.cleanupJob, "client data cleanup")
}

// HandleTriggerMaintenance triggers the database maintenance job immediately.
// POST /api/system/jobs/maintenance
func (h *SystemHandlers) HandleTriggerMaintenance(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, h.maintenanceJob, "database maintenance")
}

// HandleTriggerBackup triggers the registry backup job immediately.
// POST /api/system/jobs/backup
func (h *SystemHandlers) HandleTriggerBackup(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, h.backupJob, "registry backup")
}

// triggerJob runs a job in the background and acknowledges the trigger. Job
// errors surface in the logs, not in the HTTP response.
func (h *SystemHandlers) triggerJob(w http.ResponseWriter, job scheduler.Job, name string) {
	if job == nil {
		h.log.Warn().Str("job", name).Msg("Job trigger for unregistered job")
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "error",
			"message": fmt.Sprintf("%s job is not available", name),
		})
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job trigger")

	go func() {
		if err := h.sched.RunNow(job); err != nil {
			h.log.Error().Err(err).Str("job", name).Msg("Manually triggered job failed")
		}
	}()

	h.writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("%s job triggered", name),
	})
}

// getSystemStats calculates CPU and RAM usage percentages. Uses a 100ms
// sampling interval so the handler stays fast.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
