package llm

import "fmt"

// APIError is an application-level error reported by a model backend:
// a non-2xx status with a backend-provided message. It is surfaced to
// the operator verbatim.
type APIError struct {
	Provider string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s API error: %d", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s API error: %d - %s", e.Provider, e.Status, e.Message)
}

// ConnectError is a transport-level failure reaching a backend. It is
// reported with a remediation hint rather than the raw dial error
// alone, since the usual cause is a local backend that is not running.
type ConnectError struct {
	Provider string
	BaseURL  string
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to connect to %s at %s; ensure it is running: %v",
		e.Provider, e.BaseURL, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}
