// Package v1 contains the wire types shared between the backend and its clients.
package v1

// MessageType discriminates inbound terminal control messages.
// The set is closed: the websocket handler switches exhaustively over it and
// ignores anything else.
type MessageType string

const (
	MessageTypeInput   MessageType = "input"
	MessageTypeCommand MessageType = "command"
	MessageTypeResize  MessageType = "resize"
	MessageTypeStop    MessageType = "stop"
	MessageTypeSignal  MessageType = "signal"
	MessageTypeKill    MessageType = "kill"
	MessageTypePing    MessageType = "ping"
)

// ClientMessage is the envelope for all inbound terminal control messages.
// Only the fields relevant to the given Type are populated.
type ClientMessage struct {
	Type    MessageType `json:"type"`
	Data    string      `json:"data,omitempty"`    // input: raw keystroke bytes
	Command string      `json:"command,omitempty"` // command: text, newline appended
	Cols    int         `json:"cols,omitempty"`    // resize
	Rows    int         `json:"rows,omitempty"`    // resize
	Signal  int         `json:"signal,omitempty"`  // signal: OS signal number
}

// Session status values announced to the client.
const (
	SessionStatusConnecting = "connecting"
	SessionStatusConnected  = "connected"
	SessionStatusAutonomous = "autonomous"
	SessionStatusEnded      = "ended"
)

// StatusMessage announces a session lifecycle transition.
type StatusMessage struct {
	Type      string       `json:"type"`
	Status    string       `json:"status,omitempty"`
	SessionID string       `json:"session_id,omitempty"`
	Agent     string       `json:"agent,omitempty"`
	Running   *bool        `json:"running,omitempty"`
	Message   string       `json:"message,omitempty"`
	Model     *ModelStatus `json:"model_config,omitempty"`
}

// ModelStatus reports which model configuration a session was started with.
// The API key itself is never echoed back.
type ModelStatus struct {
	Model     string `json:"model"`
	HasAPIKey bool   `json:"has_api_key"`
}

// OutputMessage carries decoded terminal output.
type OutputMessage struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// ErrorMessage reports a handler-level failure to the client.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// PongMessage is the reply to a ping liveness probe.
type PongMessage struct {
	Type string `json:"type"`
}

// NewStatus creates a status message.
func NewStatus(status, sessionID, agent string) StatusMessage {
	return StatusMessage{Type: "status", Status: status, SessionID: sessionID, Agent: agent}
}

// NewOutput creates an output message.
func NewOutput(data string) OutputMessage {
	return OutputMessage{Type: "output", Data: data}
}

// NewError creates an error message.
func NewError(message string) ErrorMessage {
	return ErrorMessage{Type: "error", Message: message}
}

// NewPong creates a pong message.
func NewPong() PongMessage {
	return PongMessage{Type: "pong"}
}

// SessionSummary is the REST representation of a live terminal session.
type SessionSummary struct {
	SessionID string `json:"session_id"`
	ProjectID string `json:"project_id"`
	Agent     string `json:"agent"`
	Running   bool   `json:"running"`
	Cols      int    `json:"cols"`
	Rows      int    `json:"rows"`
}
