package generate

import "fmt"

// OverflowError reports a prompt plus token budget that does not fit the
// model's context window. It is a caller error, not a generation failure.
type OverflowError struct {
	PromptTokens int
	MaxNewTokens int
	ContextSize  int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("prompt (%d tokens) plus max_new_tokens (%d) exceeds the context window of %d tokens",
		e.PromptTokens, e.MaxNewTokens, e.ContextSize)
}

// Error wraps a failure of one engine stage.
type Error struct {
	Stage string // params, encode, generate, decode
	Err   error
}

func (e *Error) Error() string { return e.Stage + ": " + e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }
