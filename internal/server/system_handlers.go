package server

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/fundrisk/internal/database"
	"github.com/aristath/fundrisk/internal/modules/risk"
)

// SessionCounter reports the number of live sessions.
type SessionCounter interface {
	Count(ctx context.Context) (int, error)
}

// JobLister reports the registered background jobs.
type JobLister interface {
	Jobs() []string
}

// SystemStatusResponse is the payload of GET /api/system/status
type SystemStatusResponse struct {
	Status         string             `json:"status"`
	UptimeSeconds  int64              `json:"uptime_seconds"`
	CPUPercent     float64            `json:"cpu_percent"`
	MemoryPercent  float64            `json:"memory_percent"`
	Goroutines     int                `json:"goroutines"`
	ActiveSessions int                `json:"active_sessions"`
	SessionDB      *SessionDBStatus   `json:"session_db,omitempty"`
	Jobs           []string           `json:"jobs"`
	Defaults       RiskDefaultsStatus `json:"defaults"`
	Timestamp      string             `json:"timestamp"`
}

// SessionDBStatus summarizes the in-memory session database.
type SessionDBStatus struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	FreePages int64  `json:"free_pages"`
}

// RiskDefaultsStatus shows the horizon and confidence applied to bare requests.
type RiskDefaultsStatus struct {
	HorizonDays int             `json:"horizon_days"`
	Confidence  risk.Confidence `json:"confidence"`
}

// SystemHandlers serves runtime status
type SystemHandlers struct {
	log       zerolog.Logger
	sessionDB *database.DB
	sessions  SessionCounter
	jobs      JobLister
	engine    *risk.Engine
	startedAt time.Time

	// replaced in tests
	systemStats func() (float64, float64)
}

// NewSystemHandlers creates system handlers. Any dependency may be nil.
func NewSystemHandlers(log zerolog.Logger, sessionDB *database.DB, sessions SessionCounter, jobs JobLister, engine *risk.Engine) *SystemHandlers {
	h := &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		sessionDB: sessionDB,
		sessions:  sessions,
		jobs:      jobs,
		engine:    engine,
		startedAt: time.Now(),
	}
	h.systemStats = h.getSystemStats
	return h
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	response := h.GetSystemStatusSnapshot(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// GetSystemStatusSnapshot collects the status. Collection failures are logged
// and leave the affected fields at zero.
func (h *SystemHandlers) GetSystemStatusSnapshot(ctx context.Context) SystemStatusResponse {
	cpuPercent, memPercent := h.systemStats()

	response := SystemStatusResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Goroutines:    runtime.NumGoroutine(),
		Jobs:          []string{},
		Timestamp:     time.Now().Format(time.RFC3339),
	}

	if h.sessions != nil {
		n, err := h.sessions.Count(ctx)
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to count sessions")
			response.Status = "degraded"
		}
		response.ActiveSessions = n
	}

	if h.sessionDB != nil {
		stats, err := h.sessionDB.GetStats(ctx)
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to get session database stats")
			response.Status = "degraded"
		} else {
			response.SessionDB = &SessionDBStatus{
				Name:      h.sessionDB.Name(),
				SizeBytes: stats.SizeBytes(),
				FreePages: stats.FreelistCount,
			}
		}
	}

	if h.jobs != nil {
		response.Jobs = h.jobs.Jobs()
		sort.Strings(response.Jobs)
	}

	if h.engine != nil {
		d := h.engine.Defaults()
		response.Defaults = RiskDefaultsStatus{HorizonDays: d.HorizonDays, Confidence: d.Confidence}
	}

	return response
}

// getSystemStats calculates CPU and RAM usage percentages
// Uses a short 100ms sample so the endpoint stays responsive
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
