// Package bridge hosts the WebSocket boundary to the application that
// owns the tools. The host process connects once, announces itself,
// and from then on answers tool requests and pushes context events.
package bridge

import "encoding/json"

// Frame types for the WebSocket protocol.
const (
	FrameTypeRequest  = "req"
	FrameTypeResponse = "res"
	FrameTypeEvent    = "event"
)

// Methods the bridge sends to the host.
const (
	MethodListTools           = "tools.list"
	MethodExecuteTool         = "tools.execute"
	MethodCrossDocumentResult = "tools.crossDocumentResult"
)

// Events the host pushes to the bridge.
const (
	EventToolsChanged = "tools.changed"
	EventContextReady = "context.ready"
)

// Frame is the base envelope for all WebSocket messages. The Type
// field discriminates between request, response, and event frames.
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

// HelloParams are sent by the host in the initial "connect" request.
type HelloParams struct {
	Host    HostInfo `json:"host"`
	Token   string   `json:"token,omitempty"`
	Caps    []string `json:"caps,omitempty"`
	Locale  string   `json:"locale,omitempty"`
}

// HostInfo identifies the connecting host application.
type HostInfo struct {
	ID       string `json:"id"`
	Version  string `json:"version"`
	Platform string `json:"platform,omitempty"`
}

// HelloOK is the bridge's response payload after a successful connect.
type HelloOK struct {
	Protocol int      `json:"protocol"`
	Version  string   `json:"version"`
	ConnID   string   `json:"connId"`
	Methods  []string `json:"methods"`
	Events   []string `json:"events"`
}

// ExecuteParams carry one tool invocation to the host.
type ExecuteParams struct {
	Name string `json:"name"`
	Args string `json:"args"`
}

// ExecuteResult is the host's answer to an execute request. Pending
// means the execution navigated the document and the result must be
// fetched from the next context.
type ExecuteResult struct {
	Result  string `json:"result"`
	Pending bool   `json:"pending,omitempty"`
}

// ToolListing is the payload of both a tools.list response and a
// tools.changed event.
type ToolListing struct {
	Tools []ToolEntry `json:"tools"`
}

// ToolEntry is one advertised tool on the wire.
type ToolEntry struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// NewRequest creates a request frame.
func NewRequest(id, method string, params any) (Frame, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return Frame{}, err
	}
	return Frame{
		Type:   FrameTypeRequest,
		ID:     id,
		Method: method,
		Params: raw,
	}, nil
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

// Protocol version supported by this bridge.
const ProtocolVersion = 1
