package agent

import (
	"encoding/json"
	"time"

	"github.com/oresand/toolbridge/internal/llm"
	"github.com/oresand/toolbridge/internal/tool"
)

// SystemInstruction builds the per-session system instruction lines.
// The date is injected per session so the model resolves relative
// dates against the operator's clock rather than its training cutoff.
func SystemInstruction(now time.Time) []string {
	return []string{
		"You are a helpful assistant embedded in an application. " +
			"You can call the provided tools to inspect and act on the " +
			"host document on the user's behalf.",
		"Today's date is: " + now.Format("Monday, January 2, 2006"),
		"CRITICAL RULE: when the user refers to a relative date such as " +
			"'today', 'tomorrow' or 'next week', resolve it against the " +
			"date above before calling any tool. Never pass relative " +
			"date words to tools.",
		"Prefer calling a tool over guessing. If no tool fits the " +
			"request, answer in plain text.",
	}
}

// Declarations converts a tool set into function declarations. Tools
// whose stored schema is not valid JSON fall back to the permissive
// default so one bad tool cannot poison the whole batch.
func Declarations(tools tool.Set) []llm.FunctionDecl {
	if len(tools) == 0 {
		return nil
	}
	decls := make([]llm.FunctionDecl, 0, len(tools))
	for _, d := range tools {
		raw := d.SchemaOrDefault()
		if !json.Valid([]byte(raw)) {
			raw = tool.DefaultSchema
		}
		decls = append(decls, llm.FunctionDecl{
			Name:                 d.Name,
			Description:          d.Description,
			ParametersJSONSchema: json.RawMessage(raw),
		})
	}
	return decls
}

// BuildConfig assembles the message config sent with every session:
// the system instruction plus one tool config holding all current
// declarations.
func BuildConfig(tools tool.Set, now time.Time) llm.MessageConfig {
	cfg := llm.MessageConfig{
		SystemInstruction: SystemInstruction(now),
	}
	if decls := Declarations(tools); len(decls) > 0 {
		cfg.Tools = []llm.ToolConfig{{FunctionDeclarations: decls}}
	}
	return cfg
}
