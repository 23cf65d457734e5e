// Package ipc carries control commands to the process that owns the current
// dictation turn, over a line-delimited JSON unix socket.
package ipc

// Commands understood by the turn owner.
const (
	CommandStatus = "status"
	CommandToggle = "toggle"
	CommandStop   = "stop"
	CommandCancel = "cancel"
)

type Request struct {
	Command string `json:"command"`
}

// Response reports the owner's FSM state. Mode and Language describe the
// turn in progress and are only set for status.
type Response struct {
	OK       bool   `json:"ok"`
	State    string `json:"state,omitempty"`
	Mode     string `json:"mode,omitempty"`
	Language string `json:"language,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}
