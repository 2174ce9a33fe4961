package gateway

import "time"

// ClientInfo describes one remote DAQ supervisor node as reported by the
// upstream client-list endpoint.
type ClientInfo struct {
	ID       string   `json:"id"`
	Hostname string   `json:"hostname,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// Job is one running acquisition process on a client.
type Job struct {
	JobType       string `json:"job_type"`
	UID           string `json:"uid"`
	Running       bool   `json:"running"`
	Alive         bool   `json:"alive"`
	RestartOnFail *bool  `json:"restart_on_fail,omitempty"`
}

// SupervisorInfo carries supervisor-level metadata reported with a status.
type SupervisorInfo struct {
	Tags               []string `json:"tags,omitempty"`
	StatusPollInterval float64  `json:"status_poll_interval,omitempty"`
	LogPollInterval    float64  `json:"log_poll_interval,omitempty"`
}

// ClientStatus is the structured status payload for one client.
type ClientStatus struct {
	Jobs       []Job          `json:"jobs"`
	Supervisor SupervisorInfo `json:"supervisor"`
}

// LogEntry is a single log line reported by a client.
type LogEntry struct {
	Type      string    `json:"type"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module,omitempty"`
	ClientID  string    `json:"client_id,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// RunJobResult is returned by the upstream after launching a custom job.
type RunJobResult struct {
	JobUIDs []string `json:"job_uids"`
}
