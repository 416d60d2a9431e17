package gateway

import "encoding/json"

// Frame types for the WebSocket protocol.
const (
	FrameTypeRequest  = "req"
	FrameTypeResponse = "res"
	FrameTypeEvent    = "event"
)

// Events pushed to WebSocket clients.
const (
	EventHello    = "hello"
	EventRunDelta = "run.delta"
	EventRunEvent = "run.event"
)

// Protocol version supported by this server.
const ProtocolVersion = 1

// Frame is the base envelope for all WebSocket messages.
// The Type field discriminates between request, response, and event frames.
type Frame struct {
	Type string `json:"type"`

	// Request fields
	ID     string          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`

	// Response fields
	OK      *bool           `json:"ok,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// Event fields
	Event string `json:"event,omitempty"`
	Seq   int64  `json:"seq,omitempty"`

	// Error (response only)
	Error *ErrorShape `json:"error,omitempty"`
}

// ErrorShape is the standard error format in response frames.
type ErrorShape struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Hello is pushed once after the upgrade.
type Hello struct {
	Protocol  int      `json:"protocol"`
	Version   string   `json:"version"`
	ConnID    string   `json:"connId"`
	Namespace string   `json:"namespace"`
	Methods   []string `json:"methods"`
	Events    []string `json:"events"`
}

// NewResponse creates a success response frame.
func NewResponse(id string, payload any) (Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	ok := true
	return Frame{
		Type:    FrameTypeResponse,
		ID:      id,
		OK:      &ok,
		Payload: raw,
	}, nil
}

// NewErrorResponse creates an error response frame.
func NewErrorResponse(id string, errShape ErrorShape) Frame {
	ok := false
	return Frame{
		Type:  FrameTypeResponse,
		ID:    id,
		OK:    &ok,
		Error: &errShape,
	}
}

// NewEvent creates an event frame.
func NewEvent(event string, payload any, seq int64) (Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{
		Type:    FrameTypeEvent,
		Event:   event,
		Payload: raw,
		Seq:     seq,
	}, nil
}
