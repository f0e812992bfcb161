package model

// WebSocket event types
const (
	WSEventSunoUpdate   = "suno-update"
	WSEventMixtapeReady = "mixtape-ready"
	WSMessageTypePing   = "ping"
	WSMessageTypePong   = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSSunoUpdate carries a normalized job status to all connected clients
type WSSunoUpdate struct {
	Type  string `json:"type"`
	JobID string `json:"jobId"`
	NormalizedStatus
}

// WSMixtapeReady reports the outcome of a mixtape assembly task.
// Exactly one of DownloadURL or Error is set.
type WSMixtapeReady struct {
	Type        string `json:"type"`
	TaskID      string `json:"taskId"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	Error       string `json:"error,omitempty"`
}
