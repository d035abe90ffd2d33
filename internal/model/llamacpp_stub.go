//go:build !llama

package model

import (
	"lorachat/internal/config"
	"lorachat/pkg/types"
)

// LlamaCppBuilt reports whether this binary links go-llama.cpp.
const LlamaCppBuilt = false

// newLlamaCppBackend fails fast: the in-process runtime needs a cgo build with
// the 'llama' tag.
func newLlamaCppBackend(cfg config.ModelConfig, info types.ModelInfo) (Backend, error) {
	return nil, ErrDependencyUnavailable("llama-cpp backend not built (missing 'llama' build tag)")
}
