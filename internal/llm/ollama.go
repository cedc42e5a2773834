package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/oresand/toolbridge/internal/logging"
)

const defaultOllamaBaseURL = "http://localhost:11434"

// OllamaProvider is the text backend. The API has no native
// tool-calling channel, so tool declarations are flattened into the
// system prompt and tool-call requests are recovered from the
// assistant's free text.
type OllamaProvider struct {
	baseURL      string
	defaultModel string
	client       *http.Client
	log          *logging.Logger
}

// NewOllamaProvider creates an Ollama provider. An empty baseURL
// defaults to the local daemon.
func NewOllamaProvider(baseURL, model string, log *logging.Logger) *OllamaProvider {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &OllamaProvider{
		baseURL:      baseURL,
		defaultModel: model,
		client:       &http.Client{Timeout: 120 * time.Second},
		log:          log.Sub("llm.ollama"),
	}
}

// Name returns the provider identifier.
func (o *OllamaProvider) Name() string {
	return "ollama"
}

// CreateChat constructs a chat session with explicit local history.
func (o *OllamaProvider) CreateChat(opts ChatOptions) Chat {
	model := opts.Model
	if model == "" {
		model = o.defaultModel
	}
	return &ollamaChat{provider: o, model: model}
}

// ListModels returns installed models. An unreachable daemon is not
// an error here — it degrades to an empty list so the caller can show
// a "no models" state instead of failing.
func (o *OllamaProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	status, body, err := doJSON(ctx, o.client, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		o.log.Warn().Err(err).Msg("model discovery failed, returning empty list")
		return []ModelInfo{}, nil
	}
	if status != http.StatusOK {
		o.log.Warn().Int("status", status).Msg("model discovery rejected, returning empty list")
		return []ModelInfo{}, nil
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return []ModelInfo{}, nil
	}

	models := make([]ModelInfo, 0, len(result.Models))
	for _, m := range result.Models {
		models = append(models, ModelInfo{Name: m.Name, DisplayName: m.Name})
	}
	return models, nil
}

// GenerateContent runs a single-shot completion via /api/generate.
func (o *OllamaProvider) GenerateContent(ctx context.Context, params GenerateParams) (*GenerateResult, error) {
	model := params.Model
	if model == "" {
		model = o.defaultModel
	}
	body := map[string]any{
		"model":  model,
		"prompt": strings.Join(params.Contents, "\n"),
		"stream": false,
	}

	status, respBody, err := doJSON(ctx, o.client, http.MethodPost, o.baseURL+"/api/generate", body)
	if err != nil {
		return nil, &ConnectError{Provider: "ollama", BaseURL: o.baseURL, Err: err}
	}
	if status != http.StatusOK {
		return nil, o.apiError(status, respBody)
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return &GenerateResult{}, nil
	}
	return &GenerateResult{Text: result.Response}, nil
}

// apiError extracts the backend's error field when the body is JSON,
// falling back to the bare status.
func (o *OllamaProvider) apiError(status int, body []byte) *APIError {
	var parsed struct {
		Error string `json:"error"`
	}
	message := ""
	if err := json.Unmarshal(body, &parsed); err == nil {
		message = parsed.Error
	}
	return &APIError{Provider: "ollama", Status: status, Message: message}
}

// ollamaChat keeps an explicit message list since the backend's chat
// endpoint is stateless. Tool results are serialized to text lines
// because there is no functionResponse channel.
type ollamaChat struct {
	provider *OllamaProvider
	model    string
	messages []chatMessage
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (c *ollamaChat) SendMessage(ctx context.Context, params MessageParams) (*ChatResponse, error) {
	if len(params.ToolResponses) > 0 {
		lines := make([]string, 0, len(params.ToolResponses))
		for _, tr := range params.ToolResponses {
			payload, _ := json.Marshal(tr.FunctionResponse.Response)
			lines = append(lines, fmt.Sprintf("Tool %q result: %s", tr.FunctionResponse.Name, payload))
		}
		c.messages = append(c.messages, chatMessage{Role: RoleUser, Content: strings.Join(lines, "\n")})
	} else {
		c.messages = append(c.messages, chatMessage{Role: RoleUser, Content: params.Message})
	}

	outbound := make([]chatMessage, 0, len(c.messages)+1)
	if system := buildSystemPrompt(params.Config); system != "" {
		outbound = append(outbound, chatMessage{Role: RoleSystem, Content: system})
	}
	outbound = append(outbound, c.messages...)

	body := map[string]any{
		"model":    c.model,
		"messages": outbound,
		"stream":   false,
	}

	status, respBody, err := doJSON(ctx, c.provider.client, http.MethodPost, c.provider.baseURL+"/api/chat", body)
	if err != nil {
		c.messages = c.messages[:len(c.messages)-1]
		return nil, &ConnectError{Provider: "ollama", BaseURL: c.provider.baseURL, Err: err}
	}
	if status != http.StatusOK {
		c.messages = c.messages[:len(c.messages)-1]
		return nil, c.provider.apiError(status, respBody)
	}

	var result struct {
		Message chatMessage `json:"message"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		c.provider.log.Warn().Err(err).Msg("unparseable chat response")
	}
	assistantText := result.Message.Content

	c.messages = append(c.messages, chatMessage{Role: RoleAssistant, Content: assistantText})

	return &ChatResponse{
		Text:          assistantText,
		FunctionCalls: ExtractFunctionCalls(assistantText),
		Candidates: []Candidate{
			{Content: Content{Parts: []Part{{Text: assistantText}}}},
		},
	}, nil
}

// buildSystemPrompt flattens the system instruction and tool
// declarations into one prompt, with explicit instructions for how
// the model must format a tool call.
func buildSystemPrompt(cfg MessageConfig) string {
	var b strings.Builder
	b.WriteString(strings.Join(cfg.SystemInstruction, "\n"))

	var decls []FunctionDecl
	for _, t := range cfg.Tools {
		decls = append(decls, t.FunctionDeclarations...)
	}
	if len(decls) == 0 {
		return b.String()
	}

	b.WriteString("\n\nAvailable tools:\n")
	for i, decl := range decls {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Tool: %s\nDescription: %s\nParameters: %s",
			decl.Name, decl.Description, string(decl.ParametersJSONSchema))
	}
	b.WriteString("\n\nTo use a tool, respond with JSON in this format:\n")
	b.WriteString(`{"functionCalls": [{"name": "tool_name", "args": {...}}]}` + "\n")
	b.WriteString("If you need to use multiple tools, include them all in the functionCalls array.\n")
	b.WriteString("If you don't need to use any tools, respond normally without JSON.")
	return b.String()
}

// functionCallsRe finds a JSON object containing a functionCalls array
// anywhere in free text. Greedy on both sides, so it spans from the
// first brace to the last, which keeps nested args inside the match.
var functionCallsRe = regexp.MustCompile(`(?s)\{.*"functionCalls".*\}`)

// ExtractFunctionCalls recovers tool-call requests embedded in an
// assistant's free-text reply. This is heuristic by nature: anything
// that does not parse cleanly is treated as "no tool calls", never as
// an error, so a chatty reply degrades to a final answer.
func ExtractFunctionCalls(text string) []FunctionCall {
	match := functionCallsRe.FindString(text)
	if match == "" {
		return nil
	}

	var parsed struct {
		FunctionCalls []FunctionCall `json:"functionCalls"`
	}
	if err := json.Unmarshal([]byte(match), &parsed); err != nil {
		return nil
	}
	return parsed.FunctionCalls
}
