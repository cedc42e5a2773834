package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oresand/toolbridge/internal/tool"
)

func fixedNow() time.Time {
	return time.Date(2026, time.August, 31, 14, 30, 45, 0, time.UTC)
}

func TestSystemInstructionDate(t *testing.T) {
	lines := SystemInstruction(fixedNow())
	require.NotEmpty(t, lines)
	assert.Contains(t, lines, "Today's date is: Monday, August 31, 2026")
}

func TestDeclarations(t *testing.T) {
	tools := tool.Set{
		{Name: "search", Description: "Search", InputSchema: `{"type":"object","properties":{"query":{"type":"string"}}}`},
		{Name: "bare"},
		{Name: "broken", InputSchema: `{not json`},
	}
	decls := Declarations(tools)
	require.Len(t, decls, 3)

	assert.Equal(t, "search", decls[0].Name)
	assert.JSONEq(t, tools[0].InputSchema, string(decls[0].ParametersJSONSchema))

	// Missing and unparseable schemas both get the permissive default.
	assert.JSONEq(t, tool.DefaultSchema, string(decls[1].ParametersJSONSchema))
	assert.JSONEq(t, tool.DefaultSchema, string(decls[2].ParametersJSONSchema))
}

func TestDeclarationsEmpty(t *testing.T) {
	assert.Nil(t, Declarations(nil))
}

func TestBuildConfig(t *testing.T) {
	cfg := BuildConfig(testTools(), fixedNow())
	require.Len(t, cfg.Tools, 1)
	assert.Len(t, cfg.Tools[0].FunctionDeclarations, 2)
	assert.NotEmpty(t, cfg.SystemInstruction)

	empty := BuildConfig(nil, fixedNow())
	assert.Nil(t, empty.Tools)
	assert.NotEmpty(t, empty.SystemInstruction)
}
