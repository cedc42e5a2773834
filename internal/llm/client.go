// Package llm defines the provider abstraction for model backends.
//
// Two structurally different function-calling protocols are normalized
// into one shape: Gemini passes tool declarations as first-class typed
// function declarations and returns typed tool-call requests, while
// Ollama has no native tool-calling channel — declarations are
// serialized into the system prompt and tool calls are recovered from
// the assistant's free text. Callers hold only the Provider and Chat
// interfaces and never see the difference.
package llm

import (
	"context"
	"encoding/json"
)

// Role constants for conversation turns.
const (
	RoleUser      = "user"
	RoleModel     = "model"
	RoleSystem    = "system"
	RoleAssistant = "assistant"
)

// ModelInfo describes one selectable model.
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// ChatOptions configure a new chat session. Construction is pure —
// no network call happens until the first SendMessage.
type ChatOptions struct {
	Model string
}

// FunctionDecl is a typed tool declaration passed to the backend.
type FunctionDecl struct {
	Name                 string          `json:"name"`
	Description          string          `json:"description"`
	ParametersJSONSchema json.RawMessage `json:"parametersJsonSchema,omitempty"`
}

// ToolConfig groups function declarations, mirroring the backend's
// tools array shape.
type ToolConfig struct {
	FunctionDeclarations []FunctionDecl `json:"functionDeclarations"`
}

// MessageConfig carries the persona and available tools for one turn.
type MessageConfig struct {
	SystemInstruction []string
	Tools             []ToolConfig
}

// MessageParams is the input to SendMessage. Exactly one of Message
// (plain user text) or ToolResponses (a batch of tool results) is set.
type MessageParams struct {
	Message       string
	ToolResponses []ToolResponse
	Config        MessageConfig
}

// FunctionCall is a model-issued request to invoke a named tool.
type FunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolResponse is the executor's outcome for one FunctionCall, fed
// back to the model as the next turn.
type ToolResponse struct {
	FunctionResponse FunctionResponse `json:"functionResponse"`
}

// FunctionResponse names the tool and carries its result or error.
type FunctionResponse struct {
	Name     string          `json:"name"`
	Response ResponsePayload `json:"response"`
}

// ResponsePayload holds exactly one of Result or Error.
type ResponsePayload struct {
	Result *string `json:"result,omitempty"`
	Error  *string `json:"error,omitempty"`
}

// ToolSuccess builds a successful tool response.
func ToolSuccess(name, result string) ToolResponse {
	return ToolResponse{FunctionResponse: FunctionResponse{
		Name:     name,
		Response: ResponsePayload{Result: &result},
	}}
}

// ToolFailure builds a failed tool response.
func ToolFailure(name, message string) ToolResponse {
	return ToolResponse{FunctionResponse: FunctionResponse{
		Name:     name,
		Response: ResponsePayload{Error: &message},
	}}
}

// ChatResponse is the normalized result of one SendMessage turn.
// A turn is final exactly when FunctionCalls is empty.
type ChatResponse struct {
	Text          string         `json:"text"`
	FunctionCalls []FunctionCall `json:"functionCalls"`
	Candidates    []Candidate    `json:"candidates,omitempty"`
}

// Candidate preserves the backend's raw candidate shape for consumers
// that want to inspect it when Text is empty.
type Candidate struct {
	Content Content `json:"content"`
}

// Content is a role-tagged list of parts.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is one piece of content: text, a tool-call request, or a
// tool result being echoed back to the model.
type Part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// GenerateParams is the input to a single-shot completion.
type GenerateParams struct {
	Model    string
	Contents []string
}

// GenerateResult is the output of a single-shot completion.
type GenerateResult struct {
	Text string `json:"text"`
}

// Chat is a stateful conversation with one backend. History is
// append-only; a session is discarded and replaced on reset, never
// rewound.
type Chat interface {
	SendMessage(ctx context.Context, params MessageParams) (*ChatResponse, error)
}

// Provider is the capability set every model backend implements.
type Provider interface {
	// CreateChat constructs a chat session. Pure construction.
	CreateChat(opts ChatOptions) Chat

	// ListModels discovers selectable models. Implementations must
	// not fail just because the backend is unreachable — they return
	// an empty list so callers can fall back to a static one.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// GenerateContent runs a single-shot, non-conversational
	// completion. Used for auxiliary suggestions, not the tool loop.
	GenerateContent(ctx context.Context, params GenerateParams) (*GenerateResult, error)

	// Name returns the stable provider identifier.
	Name() string
}
