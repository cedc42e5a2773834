package agent

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/oresand/toolbridge/internal/llm"
	"github.com/oresand/toolbridge/internal/logging"
	"github.com/oresand/toolbridge/internal/tool"
)

// Suggester generates an example user prompt tailored to the tools
// the current context advertises. Suggestions are advisory; a failed
// or superseded generation is silently dropped.
type Suggester struct {
	provider llm.Provider
	model    string
	log      *logging.Logger

	// pending identifies the most recent request. A suggestion whose
	// id no longer matches arrived after the tool set changed and is
	// discarded instead of being shown against the wrong tools.
	pending atomic.Int64
}

// NewSuggester creates a suggester bound to one provider and model.
func NewSuggester(provider llm.Provider, model string, log *logging.Logger) *Suggester {
	return &Suggester{provider: provider, model: model, log: log}
}

// Suggest asks the model for one example prompt exercising the given
// tools. It returns an empty string when the tool set is empty, when
// generation fails, or when a newer Suggest call started meanwhile.
func (s *Suggester) Suggest(ctx context.Context, tools tool.Set) string {
	if len(tools) == 0 {
		return ""
	}
	id := s.pending.Add(1)

	result, err := s.provider.GenerateContent(ctx, llm.GenerateParams{
		Model:    s.model,
		Contents: []string{suggestionPrompt(tools)},
	})
	if err != nil {
		s.log.Debug().Err(err).Msg("prompt suggestion failed")
		return ""
	}
	if s.pending.Load() != id {
		s.log.Debug().Msg("discarding stale prompt suggestion")
		return ""
	}
	return strings.TrimSpace(result.Text)
}

func suggestionPrompt(tools tool.Set) string {
	var b strings.Builder
	b.WriteString("Context: you are helping a user discover what an assistant " +
		"with access to the tools below can do.\n\n")
	b.WriteString("Tool Rules:\n" +
		"- The suggestion must be answerable using only the listed tools.\n" +
		"- Do not name the tools themselves in the suggestion.\n" +
		"- Write it in the user's voice, as a single short request.\n" +
		"- If a tool filters by date, use a concrete plausible date: in " +
		"the past for history lookups, in the near future for bookings.\n\n")
	b.WriteString("Task: reply with exactly one example prompt the user could " +
		"type. No quotes, no preamble, no explanation.\n\n")
	b.WriteString("Tools:\n")
	for _, d := range tools {
		fmt.Fprintf(&b, "- %s: %s\n", d.Name, d.Description)
	}
	return b.String()
}
