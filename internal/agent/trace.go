package agent

import (
	"encoding/json"

	"github.com/oresand/toolbridge/internal/llm"
)

// Outbound is the operator-visible form of one outbound turn: either
// free text or a batch of tool results.
type Outbound struct {
	Message       string             `json:"message,omitempty"`
	ToolResponses []llm.ToolResponse `json:"toolResponses,omitempty"`
}

// Entry is a single trace record. Exactly one field is set.
type Entry struct {
	UserPrompt *Outbound         `json:"userPrompt,omitempty"`
	Response   *llm.ChatResponse `json:"response,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Trace is the append-only log of every turn in one session, kept for
// export and debugging, never replayed. The loop is its only writer,
// so no locking is needed.
type Trace struct {
	entries []Entry
}

// NewTrace creates an empty trace.
func NewTrace() *Trace {
	return &Trace{}
}

// AddPrompt records an outbound turn.
func (t *Trace) AddPrompt(out Outbound) {
	t.entries = append(t.entries, Entry{UserPrompt: &out})
}

// AddResponse records an inbound model response.
func (t *Trace) AddResponse(resp *llm.ChatResponse) {
	t.entries = append(t.entries, Entry{Response: resp})
}

// AddError records a failed model call.
func (t *Trace) AddError(err error) {
	t.entries = append(t.entries, Entry{Error: err.Error()})
}

// Entries returns a copy of the recorded entries.
func (t *Trace) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of recorded entries.
func (t *Trace) Len() int {
	return len(t.entries)
}

// Clear drops all entries.
func (t *Trace) Clear() {
	t.entries = nil
}

// JSON renders the trace as single-space-indented JSON for copy-out.
func (t *Trace) JSON() ([]byte, error) {
	if t.entries == nil {
		return []byte("[]"), nil
	}
	return json.MarshalIndent(t.entries, "", " ")
}
