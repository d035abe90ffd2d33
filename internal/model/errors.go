package model

import "errors"

// dependencyUnavailableError signals a missing external runtime (llama-server
// binary, cgo llama build) as opposed to a bad model or adapter file.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var e dependencyUnavailableError
	return errors.As(err, &e)
}

// LoadError reports which startup stage failed.
type LoadError struct {
	Stage string // resolve, spawn, connect, probe, open
	Err   error
}

func (e *LoadError) Error() string { return "model load failed (" + e.Stage + "): " + e.Err.Error() }

func (e *LoadError) Unwrap() error { return e.Err }
