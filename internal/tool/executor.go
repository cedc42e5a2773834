package tool

import (
	"context"
	"errors"
)

// ErrResultPending reports that executing a tool triggered a context
// navigation: the result will only exist in the next document. The
// caller must await the context-ready signal and then re-query via
// CrossDocumentResult.
var ErrResultPending = errors.New("tool result pending on next context")

// Executor runs a named tool with serialized JSON arguments and
// returns its serialized result. A failed execution returns an error
// whose message is what gets folded back to the model.
type Executor interface {
	Execute(ctx context.Context, name, argsJSON string) (string, error)
}

// Navigator is implemented by executors whose tool executions can
// outlive the current document context.
type Navigator interface {
	// AwaitContextReady blocks until the post-navigation context has
	// loaded and can answer queries again.
	AwaitContextReady(ctx context.Context) error

	// CrossDocumentResult fetches the result of the execution that
	// caused the navigation.
	CrossDocumentResult(ctx context.Context) (string, error)
}

// Source produces tool listings and can push unsolicited updates when
// the page's registered tool set changes.
type Source interface {
	// List returns the current snapshot of advertised tools.
	List(ctx context.Context) (Set, error)

	// OnChanged registers a callback invoked with each new snapshot.
	OnChanged(fn func(Set))
}

// ExecuteAwait runs a tool and, when the execution navigated the
// context, waits for the new context and retrieves the carried-over
// result. Executors that cannot navigate just pass errors through.
func ExecuteAwait(ctx context.Context, ex Executor, name, argsJSON string) (string, error) {
	result, err := ex.Execute(ctx, name, argsJSON)
	if !errors.Is(err, ErrResultPending) {
		return result, err
	}

	nav, ok := ex.(Navigator)
	if !ok {
		return "", err
	}
	if err := nav.AwaitContextReady(ctx); err != nil {
		return "", err
	}
	return nav.CrossDocumentResult(ctx)
}
