package v1

import "time"

type captureRequest struct {
	Source  string                 `json:"source" binding:"required"`
	Input   string                 `json:"input"`
	Text    string                 `json:"text" binding:"required"`
	Context map[string]interface{} `json:"context,omitempty"`
}

type triggerResponse struct {
	RunID   string `json:"run_id"`
	Status  string `json:"status"`
	PollURL string `json:"poll_url"`
}

type runStatusResponse struct {
	RunID         string      `json:"run_id"`
	CommandName   string      `json:"command_name"`
	Status        string      `json:"status"`
	StartedAt     time.Time   `json:"started_at"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty"`
	CostUSD       *float64    `json:"cost_usd,omitempty"`
	DurationMs    *int64      `json:"duration_ms,omitempty"`
	Error         string      `json:"error,omitempty"`
	Events        interface{} `json:"events"`
	NextCursor    int64       `json:"next_cursor"`
	DroppedBefore int64       `json:"dropped_before"`
}

type reloadResponse struct {
	Reloaded       bool     `json:"reloaded"`
	ChangedSections []string `json:"changed_sections"`
}

type deviceRegisterRequest struct {
	InstallationID string `json:"installation_id" binding:"required"`
	DeviceType     string `json:"device_type" binding:"required"`
	DeviceName     string `json:"device_name,omitempty"`
	PushURL        string `json:"push_url" binding:"required"`
}

type notificationSendRequest struct {
	Title        string                 `json:"title" binding:"required"`
	Body         string                 `json:"body" binding:"required"`
	Data         map[string]interface{} `json:"data,omitempty"`
	DeviceFilter string                 `json:"device_filter,omitempty"`
}

type backgroundTasksResponse struct {
	ActiveCommandRuns int  `json:"active_command_runs"`
	ActiveSessions    int  `json:"active_sessions"`
	VaultMutexHeld    bool `json:"vault_mutex_held"`
	MirrorEnabled     bool `json:"mirror_enabled"`
}
