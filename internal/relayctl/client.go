package relayctl

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type hostStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	UptimeSeconds uint64  `json:"uptime_seconds"`
}

type sessionSnapshot struct {
	StreamKey           string    `json:"stream_key"`
	SessionID           string    `json:"session_id"`
	Finalized           bool      `json:"finalized"`
	PeriodIndex         int       `json:"period_index"`
	WrittenMediaCount   int       `json:"written_media_count"`
	LastWrittenSequence int       `json:"last_written_sequence"`
	PendingCount        int       `json:"pending_count"`
	GapArmed            bool      `json:"gap_armed"`
	Target              string    `json:"target"`
	UploaderRunning     bool      `json:"uploader_running"`
	UploadUtilization   float64   `json:"upload_utilization"`
	CreatedAt           time.Time `json:"created_at"`
	LastUploadTime      time.Time `json:"last_upload_time"`
}

type statusResponse struct {
	Host     hostStats         `json:"host"`
	Sessions []sessionSnapshot `json:"sessions"`
}

var httpClient = &http.Client{Timeout: 5 * time.Second}

func fetchStatus(baseAddr string) (statusResponse, error) {
	var out statusResponse
	resp, err := httpClient.Get(baseAddr + "/status")
	if err != nil {
		return out, fmt.Errorf("reach relayd status endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return out, fmt.Errorf("status endpoint returned %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode status response: %w", err)
	}
	return out, nil
}

func fetchLogs(baseAddr, streamKey string) ([]string, error) {
	url := fmt.Sprintf("%s/sessions/%s/logs", baseAddr, streamKey)
	resp, err := httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("reach relayd logs endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("logs request returned %d: %s", resp.StatusCode, string(body))
	}
	var out struct {
		Lines []string `json:"lines"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode logs response: %w", err)
	}
	return out.Lines, nil
}

func postFinalize(baseAddr, streamKey string) error {
	url := fmt.Sprintf("%s/sessions/%s/finalize", baseAddr, streamKey)
	resp, err := httpClient.Post(url, "application/json", nil)
	if err != nil {
		return fmt.Errorf("reach relayd finalize endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("finalize request returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
