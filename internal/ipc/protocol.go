// Package ipc is the daemon control socket: one JSON request line and one
// JSON response line per connection.
package ipc

// Commands the daemon answers.
const (
	CommandStatus = "status"
	CommandCancel = "cancel"
)

// Request is one newline-delimited JSON command sent to the running daemon.
type Request struct {
	Command string `json:"command"`
}

type Response struct {
	OK      bool    `json:"ok"`
	State   string  `json:"state,omitempty"`
	Message string  `json:"message,omitempty"`
	Error   string  `json:"error,omitempty"`
	Status  *Status `json:"status,omitempty"`
}

// Status is the daemon snapshot returned for the "status" command.
type Status struct {
	PID      int            `json:"pid"`
	Combo    string         `json:"combo,omitempty"`
	Sessions int            `json:"sessions"`
	Outcomes map[string]int `json:"outcomes,omitempty"`
	Last     *LastSession   `json:"last,omitempty"`
}

// LastSession summarizes the most recent finished session.
type LastSession struct {
	ID         string `json:"id"`
	Outcome    string `json:"outcome"`
	Error      string `json:"error,omitempty"`
	AudioMS    int64  `json:"audio_ms"`
	FinishedAt string `json:"finished_at"`
}
