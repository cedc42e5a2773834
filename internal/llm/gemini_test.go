package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/oresand/toolbridge/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGemini(t *testing.T, handler http.HandlerFunc) *GeminiProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	g := NewGeminiProvider("test-key", srv.URL, logging.Silent())
	return g
}

func TestGeminiListModelsFiltersAndStripsPrefix(t *testing.T) {
	g := testGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]any{
				{
					"name":                       "models/gemini-2.5-flash",
					"displayName":                "Gemini 2.5 Flash",
					"supportedGenerationMethods": []string{"generateContent", "countTokens"},
				},
				{
					"name":                       "models/embedding-001",
					"supportedGenerationMethods": []string{"embedContent"},
				},
			},
		})
	})

	models, err := g.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "gemini-2.5-flash", models[0].Name)
	assert.Equal(t, "Gemini 2.5 Flash", models[0].DisplayName)
}

func TestGeminiListModelsAPIError(t *testing.T) {
	g := testGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`))
	})

	_, err := g.ListModels(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.Status)
	assert.Equal(t, "API key not valid", apiErr.Message)
}

func TestGeminiChatStructuredFunctionCall(t *testing.T) {
	var gotReq geminiRequest
	g := testGemini(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"role": "model",
					"parts": []map[string]any{
						{"functionCall": map[string]any{"name": "search", "args": map[string]any{"q": "x"}}},
					},
				},
			}},
		})
	})

	chat := g.CreateChat(ChatOptions{Model: "gemini-2.5-flash"})
	resp, err := chat.SendMessage(context.Background(), MessageParams{
		Message: "find x",
		Config: MessageConfig{
			SystemInstruction: []string{"You are an assistant.", "Be brief."},
			Tools: []ToolConfig{{FunctionDeclarations: []FunctionDecl{{
				Name:                 "search",
				Description:          "Searches.",
				ParametersJSONSchema: json.RawMessage(`{"type":"object","properties":{"q":{"type":"string"}}}`),
			}}}},
		},
	})
	require.NoError(t, err)

	// Declarations went out as first-class typed functions.
	require.Len(t, gotReq.Tools, 1)
	assert.Equal(t, "search", gotReq.Tools[0].FunctionDeclarations[0].Name)
	require.NotNil(t, gotReq.SystemInstruction)
	assert.Contains(t, gotReq.SystemInstruction.Parts[0].Text, "Be brief.")

	// Tool calls came back typed, no text scraping involved.
	require.Len(t, resp.FunctionCalls, 1)
	assert.Equal(t, "search", resp.FunctionCalls[0].Name)
	assert.Equal(t, map[string]any{"q": "x"}, resp.FunctionCalls[0].Args)
	assert.Empty(t, resp.Text)
}

func TestGeminiChatHistoryAccumulates(t *testing.T) {
	turn := 0
	g := testGemini(t, func(w http.ResponseWriter, r *http.Request) {
		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		turn++
		if turn == 2 {
			// Second turn carries user, model, and the tool-result turn.
			require.Len(t, req.Contents, 3)
			assert.Equal(t, RoleUser, req.Contents[0].Role)
			assert.Equal(t, RoleModel, req.Contents[1].Role)
			require.NotNil(t, req.Contents[2].Parts[0].FunctionResponse)
			assert.Equal(t, "search", req.Contents[2].Parts[0].FunctionResponse.Name)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": "done"}},
				},
			}},
		})
	})

	chat := g.CreateChat(ChatOptions{Model: "gemini-2.5-flash"})
	_, err := chat.SendMessage(context.Background(), MessageParams{Message: "hi"})
	require.NoError(t, err)

	resp, err := chat.SendMessage(context.Background(), MessageParams{
		ToolResponses: []ToolResponse{ToolSuccess("search", `{"hits":3}`)},
	})
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Text)
	assert.Empty(t, resp.FunctionCalls)
}

func TestGeminiChatErrorKeepsHistoryRetryable(t *testing.T) {
	fail := true
	g := testGemini(t, func(w http.ResponseWriter, r *http.Request) {
		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if fail {
			fail = false
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
			return
		}
		// The retried request must not carry a duplicated user turn.
		require.Len(t, req.Contents, 1)
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{"role": "model", "parts": []map[string]any{{"text": "ok"}}},
			}},
		})
	})

	chat := g.CreateChat(ChatOptions{Model: "gemini-2.5-flash"})
	_, err := chat.SendMessage(context.Background(), MessageParams{Message: "hi"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)

	resp, err := chat.SendMessage(context.Background(), MessageParams{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
}

func TestGeminiGenerateContent(t *testing.T) {
	g := testGemini(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{"parts": []map[string]any{{"text": "a suggestion"}}},
			}},
		})
	})

	result, err := g.GenerateContent(context.Background(), GenerateParams{
		Model:    "gemini-2.5-flash",
		Contents: []string{"context line", "task line"},
	})
	require.NoError(t, err)
	assert.Equal(t, "a suggestion", result.Text)
}

func TestGeminiMalformedResponseIsNotFatal(t *testing.T) {
	g := testGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	})

	chat := g.CreateChat(ChatOptions{Model: "gemini-2.5-flash"})
	resp, err := chat.SendMessage(context.Background(), MessageParams{Message: "hi"})
	require.NoError(t, err)
	assert.Empty(t, resp.Text)
	assert.Empty(t, resp.FunctionCalls)
}

func TestGeminiListModelsUnreachableDegradesToEmpty(t *testing.T) {
	// Nothing listens on this address. Discovery must not fail, so the
	// caller can fall back to the static model list.
	g := NewGeminiProvider("k", "http://127.0.0.1:1", logging.Silent())

	models, err := g.ListModels(context.Background())
	require.NoError(t, err)
	assert.Empty(t, models)
}

func TestGeminiConnectError(t *testing.T) {
	// Nothing listens on this address.
	g := NewGeminiProvider("k", "http://127.0.0.1:1", logging.Silent())

	_, err := g.GenerateContent(context.Background(), GenerateParams{
		Model:    "gemini-2.5-flash",
		Contents: []string{"hi"},
	})
	var connErr *ConnectError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "gemini", connErr.Provider)
}
