// Package ipc carries session commands between a forwarding CLI invocation
// and the owning murmur process over a unix-domain socket. The wire format
// is one newline-delimited JSON request answered by one JSON response.
package ipc

// Request is one command addressed to the session owner: status, toggle,
// stop, cancel, or retry. SessionID, when set, pins the command to the
// session the caller last observed; the owner rejects it once that session
// has been replaced.
type Request struct {
	Command   string `json:"command"`
	SessionID string `json:"session_id,omitempty"`
}

// Response reports command acceptance plus the owner's session view.
type Response struct {
	OK        bool   `json:"ok"`
	State     string `json:"state,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}
