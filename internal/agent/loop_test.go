package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oresand/toolbridge/internal/llm"
	"github.com/oresand/toolbridge/internal/logging"
	"github.com/oresand/toolbridge/internal/tool"
)

type fakeExecutor struct {
	calls   []string
	results map[string]string
	errs    map[string]error
}

func (f *fakeExecutor) Execute(ctx context.Context, name, argsJSON string) (string, error) {
	f.calls = append(f.calls, name+" "+argsJSON)
	if err, ok := f.errs[name]; ok {
		return "", err
	}
	return f.results[name], nil
}

func testTools() tool.Set {
	return tool.Set{
		{Name: "search", Description: "Search the document", InputSchema: `{"type":"object","properties":{"query":{"type":"string"}}}`},
		{Name: "openItem", Description: "Open an item by id"},
	}
}

func newTestLoop(chat llm.Chat, ex tool.Executor) *Loop {
	tools := testTools()
	return NewLoop(LoopConfig{}, chat, ex, tools, BuildConfig(tools, fixedNow()), logging.Silent())
}

func TestRunPlainTextAnswer(t *testing.T) {
	chat := &llm.MockChat{SendMessageFunc: func(ctx context.Context, p llm.MessageParams) (*llm.ChatResponse, error) {
		return &llm.ChatResponse{Text: "All done."}, nil
	}}
	loop := newTestLoop(chat, &fakeExecutor{})

	res, err := loop.Run(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "All done.", res.Text)
	assert.Equal(t, 1, res.Turns)

	entries := loop.Trace().Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "hello", entries[0].UserPrompt.Message)
	assert.Equal(t, "All done.", entries[1].Response.Text)
}

func TestRunToolRoundTrip(t *testing.T) {
	turn := 0
	chat := &llm.MockChat{SendMessageFunc: func(ctx context.Context, p llm.MessageParams) (*llm.ChatResponse, error) {
		turn++
		if turn == 1 {
			return &llm.ChatResponse{FunctionCalls: []llm.FunctionCall{
				{Name: "search", Args: map[string]any{"query": "gadgets"}},
			}}, nil
		}
		return &llm.ChatResponse{Text: "Found 3 gadgets."}, nil
	}}
	ex := &fakeExecutor{results: map[string]string{"search": `{"hits":3}`}}
	loop := newTestLoop(chat, ex)

	res, err := loop.Run(context.Background(), "find gadgets")
	require.NoError(t, err)
	assert.Equal(t, "Found 3 gadgets.", res.Text)
	assert.Equal(t, 2, res.Turns)

	require.Len(t, ex.calls, 1)
	assert.Equal(t, `search {"query":"gadgets"}`, ex.calls[0])

	// The second outbound turn carries the tool result, not text.
	require.Len(t, chat.Sent, 2)
	second := chat.Sent[1]
	assert.Empty(t, second.Message)
	require.Len(t, second.ToolResponses, 1)
	fr := second.ToolResponses[0].FunctionResponse
	assert.Equal(t, "search", fr.Name)
	require.NotNil(t, fr.Response.Result)
	assert.Equal(t, `{"hits":3}`, *fr.Response.Result)
	assert.Nil(t, fr.Response.Error)
}

func TestRunFoldsExecutionErrors(t *testing.T) {
	turn := 0
	chat := &llm.MockChat{SendMessageFunc: func(ctx context.Context, p llm.MessageParams) (*llm.ChatResponse, error) {
		turn++
		if turn == 1 {
			return &llm.ChatResponse{FunctionCalls: []llm.FunctionCall{
				{Name: "search", Args: map[string]any{"query": "x"}},
				{Name: "openItem", Args: map[string]any{"id": float64(7)}},
			}}, nil
		}
		return &llm.ChatResponse{Text: "done"}, nil
	}}
	ex := &fakeExecutor{
		results: map[string]string{"openItem": "opened"},
		errs:    map[string]error{"search": errors.New("boom")},
	}
	loop := newTestLoop(chat, ex)

	_, err := loop.Run(context.Background(), "do both")
	require.NoError(t, err)

	// Both calls ran despite the first failing, in request order.
	require.Len(t, ex.calls, 2)
	assert.Contains(t, ex.calls[0], "search")
	assert.Contains(t, ex.calls[1], "openItem")

	responses := chat.Sent[1].ToolResponses
	require.Len(t, responses, 2)
	first := responses[0].FunctionResponse
	require.NotNil(t, first.Response.Error)
	assert.Equal(t, "boom", *first.Response.Error)
	assert.Nil(t, first.Response.Result)
	second := responses[1].FunctionResponse
	require.NotNil(t, second.Response.Result)
	assert.Equal(t, "opened", *second.Response.Result)
}

func TestRunUnknownToolFolded(t *testing.T) {
	turn := 0
	chat := &llm.MockChat{SendMessageFunc: func(ctx context.Context, p llm.MessageParams) (*llm.ChatResponse, error) {
		turn++
		if turn == 1 {
			return &llm.ChatResponse{FunctionCalls: []llm.FunctionCall{
				{Name: "teleport", Args: map[string]any{}},
			}}, nil
		}
		return &llm.ChatResponse{Text: "ok"}, nil
	}}
	ex := &fakeExecutor{}
	loop := newTestLoop(chat, ex)

	_, err := loop.Run(context.Background(), "go")
	require.NoError(t, err)

	// The executor is never reached for an unadvertised tool.
	assert.Empty(t, ex.calls)
	fr := chat.Sent[1].ToolResponses[0].FunctionResponse
	require.NotNil(t, fr.Response.Error)
	assert.Equal(t, "unknown tool: teleport", *fr.Response.Error)
}

func TestRunMaxTurns(t *testing.T) {
	chat := &llm.MockChat{SendMessageFunc: func(ctx context.Context, p llm.MessageParams) (*llm.ChatResponse, error) {
		return &llm.ChatResponse{FunctionCalls: []llm.FunctionCall{
			{Name: "search", Args: map[string]any{"query": "again"}},
		}}, nil
	}}
	ex := &fakeExecutor{results: map[string]string{"search": "more"}}
	tools := testTools()
	loop := NewLoop(LoopConfig{MaxTurns: 3}, chat, ex, tools, BuildConfig(tools, fixedNow()), logging.Silent())

	_, err := loop.Run(context.Background(), "loop forever")
	require.ErrorIs(t, err, ErrMaxTurns)
	assert.Len(t, chat.Sent, 3)
	// The trace keeps everything recorded up to the cutoff.
	assert.Equal(t, 6, loop.Trace().Len())
}

func TestRunModelErrorRecordedInTrace(t *testing.T) {
	sendErr := fmt.Errorf("gemini API error: 429 - quota exceeded")
	chat := &llm.MockChat{SendMessageFunc: func(ctx context.Context, p llm.MessageParams) (*llm.ChatResponse, error) {
		return nil, sendErr
	}}
	loop := newTestLoop(chat, &fakeExecutor{})

	_, err := loop.Run(context.Background(), "hello")
	require.ErrorIs(t, err, sendErr)

	entries := loop.Trace().Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, sendErr.Error(), entries[1].Error)
}

func TestRunEmptyTextDiagnostic(t *testing.T) {
	chat := &llm.MockChat{SendMessageFunc: func(ctx context.Context, p llm.MessageParams) (*llm.ChatResponse, error) {
		return &llm.ChatResponse{Candidates: []llm.Candidate{
			{Content: llm.Content{Role: llm.RoleModel, Parts: []llm.Part{{Text: ""}}}},
		}}, nil
	}}
	loop := newTestLoop(chat, &fakeExecutor{})

	res, err := loop.Run(context.Background(), "hello")
	require.NoError(t, err)
	assert.Contains(t, res.Text, "The model returned no text")
	assert.Contains(t, res.Text, `"role":"model"`)
}

func TestRunStaleResponseDiscardedAfterReset(t *testing.T) {
	loop := newTestLoop(&llm.MockChat{}, &fakeExecutor{})
	chat := &llm.MockChat{SendMessageFunc: func(ctx context.Context, p llm.MessageParams) (*llm.ChatResponse, error) {
		// Simulate a reset landing while the request is in flight.
		loop.Reset()
		return &llm.ChatResponse{Text: "too late"}, nil
	}}
	loop.chat = chat

	_, err := loop.Run(context.Background(), "hello")
	require.ErrorIs(t, err, ErrStale)
	// Reset cleared the trace and the late response never re-entered it.
	assert.Equal(t, 0, loop.Trace().Len())
}

func TestResetClearsTrace(t *testing.T) {
	loop := newTestLoop(&llm.MockChat{}, &fakeExecutor{})
	_, err := loop.Run(context.Background(), "hello")
	require.NoError(t, err)
	require.NotZero(t, loop.Trace().Len())

	loop.Reset()
	assert.Zero(t, loop.Trace().Len())
}

func TestTraceJSON(t *testing.T) {
	tr := NewTrace()
	out, err := tr.JSON()
	require.NoError(t, err)
	assert.Equal(t, "[]", string(out))

	tr.AddPrompt(Outbound{Message: "hi"})
	tr.AddError(errors.New("nope"))
	out, err = tr.JSON()
	require.NoError(t, err)
	assert.Contains(t, string(out), `"message": "hi"`)
	assert.Contains(t, string(out), `"error": "nope"`)
}
