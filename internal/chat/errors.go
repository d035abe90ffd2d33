package chat

import (
	"errors"
	"fmt"
	"net/http"
)

// validationError rejects a malformed request (400).
type validationError struct{ msg string }

func (e validationError) Error() string   { return e.msg }
func (e validationError) StatusCode() int { return http.StatusBadRequest }

// ErrValidation constructs a validationError.
func ErrValidation(format string, args ...any) error {
	return validationError{msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a request validation failure.
func IsValidation(err error) bool {
	var e validationError
	return errors.As(err, &e)
}

// modelUnavailableError reports that the model never loaded (503).
type modelUnavailableError struct{ msg string }

func (e modelUnavailableError) Error() string   { return e.msg }
func (e modelUnavailableError) StatusCode() int { return http.StatusServiceUnavailable }

// ErrModelUnavailable constructs a modelUnavailableError.
func ErrModelUnavailable(msg string) error { return modelUnavailableError{msg: msg} }

// IsModelUnavailable reports whether err indicates the model is not loaded.
func IsModelUnavailable(err error) bool {
	var e modelUnavailableError
	return errors.As(err, &e)
}

// generationError reports a failure during assembly or generation (500).
// The message stays short; the cause is for operator logs.
type generationError struct {
	stage string
	cause error
}

// stageMessages are the caller-facing descriptions of each failing stage.
var stageMessages = map[string]string{
	"template":       "could not format the conversation with the chat template",
	"params":         "generation parameters were rejected by the model backend",
	"encode":         "could not tokenize the prompt",
	"generate":       "model backend failed while generating",
	"decode":         "could not decode the generated tokens",
	"internal error": "internal error while generating the reply",
}

func (e generationError) Error() string {
	if msg, ok := stageMessages[e.stage]; ok {
		return msg
	}
	return "generation failed"
}

func (e generationError) StatusCode() int { return http.StatusInternalServerError }
func (e generationError) Unwrap() error   { return e.cause }

// ErrGeneration constructs a generationError for the failing stage.
func ErrGeneration(stage string, cause error) error {
	return generationError{stage: stage, cause: cause}
}

// IsGeneration reports whether err is a generation failure.
func IsGeneration(err error) bool {
	var e generationError
	return errors.As(err, &e)
}

// tooBusyError signals a full admission queue or an exceeded wait (429).
type tooBusyError struct{ reason string }

func (e tooBusyError) Error() string   { return "too busy: " + e.reason }
func (e tooBusyError) StatusCode() int { return http.StatusTooManyRequests }

// Reason names the backpressure cause (queue_full, queue_timeout).
func (e tooBusyError) Reason() string { return e.reason }

// IsTooBusy reports whether err indicates backpressure.
func IsTooBusy(err error) bool {
	var e tooBusyError
	return errors.As(err, &e)
}

// BusyReason returns the backpressure reason of err, or "" if it is not a TooBusy error.
func BusyReason(err error) string {
	var e tooBusyError
	if errors.As(err, &e) {
		return e.reason
	}
	return ""
}
