package session

import "errors"

var (
	// ErrModelUnavailable means the configured model is not present on the
	// runtime. Session construction fails with this; callers surface a
	// "pull the model first" hint.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrInvocationFailed wraps any runtime failure during a turn. The
	// session history is guaranteed to be unchanged when an ask returns it.
	ErrInvocationFailed = errors.New("model invocation failed")
)
