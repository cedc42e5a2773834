package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oresand/toolbridge/internal/logging"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// FallbackGeminiModels is the static list used when model discovery
// returns nothing usable.
var FallbackGeminiModels = []ModelInfo{
	{Name: "gemini-2.5-flash", DisplayName: "Gemini 2.5 Flash"},
	{Name: "gemini-2.5-pro", DisplayName: "Gemini 2.5 Pro"},
	{Name: "gemini-2.0-flash", DisplayName: "Gemini 2.0 Flash"},
	{Name: "gemini-1.5-pro", DisplayName: "Gemini 1.5 Pro"},
	{Name: "gemini-1.5-flash", DisplayName: "Gemini 1.5 Flash"},
}

// GeminiProvider is the structured backend: tool declarations go out
// as typed function declarations and tool-call requests come back as
// typed functionCall parts.
type GeminiProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     *logging.Logger
}

// NewGeminiProvider creates a Gemini provider using the given API key.
// An empty baseURL selects the public endpoint.
func NewGeminiProvider(apiKey, baseURL string, log *logging.Logger) *GeminiProvider {
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &GeminiProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
		log:     log.Sub("llm.gemini"),
	}
}

// Name returns the provider identifier.
func (g *GeminiProvider) Name() string {
	return "gemini"
}

// CreateChat constructs a chat session holding structured history.
func (g *GeminiProvider) CreateChat(opts ChatOptions) Chat {
	return &geminiChat{provider: g, model: opts.Model}
}

// ListModels fetches models that support generateContent. The
// "models/" prefix is stripped from names for display and selection.
// An unreachable backend is not an error here: discovery degrades to
// an empty list so callers can fall back to the static model list.
func (g *GeminiProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	endpoint := fmt.Sprintf("%s/v1beta/models?key=%s&pageSize=200", g.baseURL, url.QueryEscape(g.apiKey))

	status, body, err := doJSON(ctx, g.client, http.MethodGet, endpoint, nil)
	if err != nil {
		g.log.Warn().Err(err).Msg("model discovery failed, returning empty list")
		return []ModelInfo{}, nil
	}
	if status != http.StatusOK {
		return nil, g.apiError(status, body)
	}

	var result struct {
		Models []struct {
			Name                       string   `json:"name"`
			DisplayName                string   `json:"displayName"`
			SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
		} `json:"models"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parsing model list: %w", err)
	}

	var models []ModelInfo
	for _, m := range result.Models {
		if !supportsGenerateContent(m.SupportedGenerationMethods) {
			continue
		}
		name := strings.TrimPrefix(m.Name, "models/")
		display := m.DisplayName
		if display == "" {
			display = name
		}
		models = append(models, ModelInfo{Name: name, DisplayName: display})
	}
	return models, nil
}

// GenerateContent runs a single-shot completion.
func (g *GeminiProvider) GenerateContent(ctx context.Context, params GenerateParams) (*GenerateResult, error) {
	parts := make([]Part, 0, len(params.Contents))
	for _, c := range params.Contents {
		parts = append(parts, Part{Text: c})
	}
	body := geminiRequest{
		Contents: []Content{{Role: RoleUser, Parts: parts}},
	}

	resp, err := g.generate(ctx, params.Model, body)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	if len(resp.Candidates) > 0 {
		for _, part := range resp.Candidates[0].Content.Parts {
			text.WriteString(part.Text)
		}
	}
	return &GenerateResult{Text: text.String()}, nil
}

func (g *GeminiProvider) generate(ctx context.Context, model string, body geminiRequest) (*geminiResponse, error) {
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		g.baseURL, url.PathEscape(model), url.QueryEscape(g.apiKey))

	status, respBody, err := doJSON(ctx, g.client, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, &ConnectError{Provider: "gemini", BaseURL: g.baseURL, Err: err}
	}
	if status != http.StatusOK {
		return nil, g.apiError(status, respBody)
	}

	var result geminiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		// Malformed body with a 200 status: no usable output.
		g.log.Warn().Err(err).Msg("unparseable generateContent response")
		return &geminiResponse{}, nil
	}
	return &result, nil
}

func (g *GeminiProvider) apiError(status int, body []byte) *APIError {
	var parsed struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	message := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		message = parsed.Error.Message
	}
	return &APIError{Provider: "gemini", Status: status, Message: message}
}

func supportsGenerateContent(methods []string) bool {
	for _, m := range methods {
		if m == "generateContent" {
			return true
		}
	}
	return false
}

// geminiChat is a structured chat session. The backend is stateless,
// so the full contents history travels with every request.
type geminiChat struct {
	provider *GeminiProvider
	model    string
	history  []Content
}

func (c *geminiChat) SendMessage(ctx context.Context, params MessageParams) (*ChatResponse, error) {
	var parts []Part
	if len(params.ToolResponses) > 0 {
		for i := range params.ToolResponses {
			fr := params.ToolResponses[i].FunctionResponse
			parts = append(parts, Part{FunctionResponse: &fr})
		}
	} else {
		parts = []Part{{Text: params.Message}}
	}
	c.history = append(c.history, Content{Role: RoleUser, Parts: parts})

	body := geminiRequest{Contents: c.history}
	if len(params.Config.SystemInstruction) > 0 {
		body.SystemInstruction = &Content{
			Parts: []Part{{Text: strings.Join(params.Config.SystemInstruction, "\n")}},
		}
	}
	body.Tools = params.Config.Tools

	resp, err := c.provider.generate(ctx, c.model, body)
	if err != nil {
		// Drop the unanswered turn so the same prompt can be retried.
		c.history = c.history[:len(c.history)-1]
		return nil, err
	}

	var text strings.Builder
	var calls []FunctionCall
	candidates := make([]Candidate, 0, len(resp.Candidates))

	if len(resp.Candidates) > 0 {
		content := resp.Candidates[0].Content
		if content.Role == "" {
			content.Role = RoleModel
		}
		c.history = append(c.history, content)

		for _, part := range content.Parts {
			text.WriteString(part.Text)
			if part.FunctionCall != nil {
				calls = append(calls, *part.FunctionCall)
			}
		}
		for _, cand := range resp.Candidates {
			candidates = append(candidates, Candidate{Content: cand.Content})
		}
	}

	return &ChatResponse{
		Text:          text.String(),
		FunctionCalls: calls,
		Candidates:    candidates,
	}, nil
}

// Wire structures

type geminiRequest struct {
	Contents          []Content    `json:"contents"`
	SystemInstruction *Content     `json:"systemInstruction,omitempty"`
	Tools             []ToolConfig `json:"tools,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      Content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}
