package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/oresand/toolbridge/internal/llm"
	"github.com/oresand/toolbridge/internal/logging"
	"github.com/oresand/toolbridge/internal/tool"
)

const (
	// DefaultMaxTurns bounds how many model round trips one prompt may
	// trigger before the loop gives up.
	DefaultMaxTurns = 16

	// DefaultTimeout bounds the wall-clock time for one Run call,
	// tool execution included.
	DefaultTimeout = 5 * time.Minute
)

// ErrMaxTurns is returned when the model keeps requesting tools past
// the configured turn limit.
var ErrMaxTurns = errors.New("agent: turn limit reached without a final answer")

// ErrStale is returned when the session was reset while a model call
// or tool execution was in flight. The late result is discarded.
var ErrStale = errors.New("agent: run superseded by reset")

// LoopConfig tunes one orchestration loop.
type LoopConfig struct {
	MaxTurns int
	Timeout  time.Duration
}

func (c LoopConfig) withDefaults() LoopConfig {
	if c.MaxTurns <= 0 {
		c.MaxTurns = DefaultMaxTurns
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Result is the outcome of one completed Run.
type Result struct {
	// Text is the model's final answer.
	Text string
	// Turns is how many model round trips the prompt took.
	Turns int
}

// Loop drives one chat session: it sends the operator's prompt,
// executes every tool call the model requests, feeds the results
// back, and repeats until the model answers in plain text.
type Loop struct {
	cfg      LoopConfig
	chat     llm.Chat
	executor tool.Executor
	tools    tool.Set
	config   llm.MessageConfig
	trace    *Trace
	log      *logging.Logger

	// token invalidates in-flight runs on Reset. Every await compares
	// against the value captured at Run start.
	token atomic.Int64
}

// NewLoop wires a loop around an open chat session.
func NewLoop(cfg LoopConfig, chat llm.Chat, executor tool.Executor, tools tool.Set, msgConfig llm.MessageConfig, log *logging.Logger) *Loop {
	return &Loop{
		cfg:      cfg.withDefaults(),
		chat:     chat,
		executor: executor,
		tools:    tools,
		config:   msgConfig,
		trace:    NewTrace(),
		log:      log,
	}
}

// Trace exposes the session trace for export.
func (l *Loop) Trace() *Trace {
	return l.trace
}

// Reset invalidates any in-flight run and clears the trace. The chat
// session itself is abandoned by the caller; a fresh Loop wraps the
// replacement.
func (l *Loop) Reset() {
	l.token.Add(1)
	l.trace.Clear()
	l.log.Debug().Msg("session reset")
}

// Run sends prompt and loops over tool execution until the model
// produces a final text answer. On model-call failure the error is
// recorded in the trace and returned; the session history stays
// intact so the same prompt can be retried.
func (l *Loop) Run(ctx context.Context, prompt string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	run := l.token.Load()
	outbound := Outbound{Message: prompt}

	for turn := 1; ; turn++ {
		if turn > l.cfg.MaxTurns {
			l.log.Warn().Int("maxTurns", l.cfg.MaxTurns).Msg("turn limit reached")
			return nil, ErrMaxTurns
		}

		l.trace.AddPrompt(outbound)
		resp, err := l.chat.SendMessage(ctx, llm.MessageParams{
			Message:       outbound.Message,
			ToolResponses: outbound.ToolResponses,
			Config:        l.config,
		})
		if err != nil {
			l.trace.AddError(err)
			l.log.Error().Int("turn", turn).Err(err).Msg("model call failed")
			return nil, err
		}
		if l.token.Load() != run {
			l.log.Debug().Int("turn", turn).Msg("discarding stale model response")
			return nil, ErrStale
		}
		l.trace.AddResponse(resp)

		if len(resp.FunctionCalls) == 0 {
			return &Result{Text: l.finalText(resp), Turns: turn}, nil
		}

		responses := make([]llm.ToolResponse, 0, len(resp.FunctionCalls))
		for _, call := range resp.FunctionCalls {
			tr, err := l.executeCall(ctx, call)
			if err != nil {
				return nil, err
			}
			if l.token.Load() != run {
				l.log.Debug().Str("tool", call.Name).Msg("discarding stale tool result")
				return nil, ErrStale
			}
			responses = append(responses, tr)
		}
		outbound = Outbound{ToolResponses: responses}
	}
}

// executeCall runs one requested tool call. Execution failures are
// folded into a failure payload for the model rather than aborting
// the batch; only context cancellation is fatal.
func (l *Loop) executeCall(ctx context.Context, call llm.FunctionCall) (llm.ToolResponse, error) {
	if _, ok := l.tools.Find(call.Name); !ok {
		l.log.Warn().Str("tool", call.Name).Msg("model requested unknown tool")
		return llm.ToolFailure(call.Name, fmt.Sprintf("unknown tool: %s", call.Name)), nil
	}

	args, err := json.Marshal(call.Args)
	if err != nil {
		return llm.ToolFailure(call.Name, fmt.Sprintf("unencodable arguments: %v", err)), nil
	}

	l.log.Debug().Str("tool", call.Name).Msg("executing tool")
	result, err := tool.ExecuteAwait(ctx, l.executor, call.Name, string(args))
	if err != nil {
		if ctx.Err() != nil {
			return llm.ToolResponse{}, ctx.Err()
		}
		l.log.Warn().Str("tool", call.Name).Err(err).Msg("tool execution failed")
		return llm.ToolFailure(call.Name, err.Error()), nil
	}
	return llm.ToolSuccess(call.Name, result), nil
}

// finalText returns the response text, or a diagnostic payload when
// the model finished a turn without any text so the operator can see
// what actually came back.
func (l *Loop) finalText(resp *llm.ChatResponse) string {
	if resp.Text != "" {
		return resp.Text
	}
	l.log.Warn().Msg("model returned no text in final response")
	raw, err := json.Marshal(resp.Candidates)
	if err != nil || len(resp.Candidates) == 0 {
		return "The model returned an empty response."
	}
	return "The model returned no text. Raw candidates: " + string(raw)
}
