package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSet() Set {
	return Set{
		{Name: "search", Description: "Searches the page.", InputSchema: `{"type":"object","properties":{"q":{"type":"string"}}}`},
		{Name: "navigate", Description: "Opens a URL."},
	}
}

func TestSetFindAndNames(t *testing.T) {
	s := sampleSet()

	d, ok := s.Find("search")
	require.True(t, ok)
	assert.Equal(t, "Searches the page.", d.Description)

	_, ok = s.Find("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"search", "navigate"}, s.Names())
}

func TestSetEqual(t *testing.T) {
	assert.True(t, sampleSet().Equal(sampleSet()))
	assert.True(t, Set{}.Equal(nil))

	reordered := Set{sampleSet()[1], sampleSet()[0]}
	assert.False(t, sampleSet().Equal(reordered))

	changed := sampleSet()
	changed[0].Description = "different"
	assert.False(t, sampleSet().Equal(changed))

	assert.False(t, sampleSet().Equal(sampleSet()[:1]))
}

func TestSchemaOrDefault(t *testing.T) {
	assert.Equal(t, DefaultSchema, Descriptor{Name: "x"}.SchemaOrDefault())
	assert.Equal(t, `{"type":"string"}`, Descriptor{InputSchema: `{"type":"string"}`}.SchemaOrDefault())
}

func TestExportPrototext(t *testing.T) {
	out := ExportPrototext(sampleSet())

	assert.Contains(t, out, `name: "search"`)
	assert.Contains(t, out, `description: "Searches the page."`)
	assert.Contains(t, out, `input_schema: "{\"type\":\"object\",\"properties\":{\"q\":{\"type\":\"string\"}}}"`)
	// Missing schema falls back to the empty object schema, emitted as
	// a bare object literal rather than a quoted string.
	assert.Contains(t, out, `input_schema: {"type":"object","properties":{}}`)
	assert.NotContains(t, out, `input_schema: "{\"type\":\"object\",\"properties\":{}}"`)
	assert.Contains(t, out, "script_tools {")
	assert.Contains(t, out, "\r\n")
}

func TestExportJSON(t *testing.T) {
	out, err := ExportJSON(Set{
		{Name: "search", Description: "d", InputSchema: `{"type":"object"}`},
		{Name: "broken", Description: "d", InputSchema: `{not json`},
	})
	require.NoError(t, err)

	var tools []struct {
		Name        string         `json:"name"`
		InputSchema map[string]any `json:"inputSchema"`
	}
	require.NoError(t, json.Unmarshal(out, &tools))
	require.Len(t, tools, 2)
	assert.Equal(t, "object", tools[0].InputSchema["type"])
	// Unparseable schema exports as the default, not an error.
	assert.Equal(t, "object", tools[1].InputSchema["type"])
	assert.NotNil(t, tools[1].InputSchema["properties"])
}

// fakeExecutor implements Executor and optionally Navigator.
type fakeExecutor struct {
	result     string
	err        error
	crossDoc   string
	awaited    bool
	crossAsked bool
}

func (f *fakeExecutor) Execute(ctx context.Context, name, argsJSON string) (string, error) {
	return f.result, f.err
}

func (f *fakeExecutor) AwaitContextReady(ctx context.Context) error {
	f.awaited = true
	return nil
}

func (f *fakeExecutor) CrossDocumentResult(ctx context.Context) (string, error) {
	f.crossAsked = true
	return f.crossDoc, nil
}

func TestExecuteAwaitDirectResult(t *testing.T) {
	ex := &fakeExecutor{result: "done"}
	out, err := ExecuteAwait(context.Background(), ex, "search", "{}")
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.False(t, ex.awaited)
}

func TestExecuteAwaitNavigated(t *testing.T) {
	ex := &fakeExecutor{err: ErrResultPending, crossDoc: "carried over"}
	out, err := ExecuteAwait(context.Background(), ex, "navigate", "{}")
	require.NoError(t, err)
	assert.Equal(t, "carried over", out)
	assert.True(t, ex.awaited)
	assert.True(t, ex.crossAsked)
}

func TestExecuteAwaitErrorPassthrough(t *testing.T) {
	boom := errors.New("boom")
	ex := &fakeExecutor{err: boom}
	_, err := ExecuteAwait(context.Background(), ex, "search", "{}")
	assert.ErrorIs(t, err, boom)
}
