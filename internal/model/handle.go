package model

import (
	"context"
	"sync"

	"lorachat/pkg/types"
)

// Handle is the single inference-ready model of the process. It is created
// once by Load, never mutated, and shared read-only by all requests.
type Handle struct {
	backend   Backend
	info      types.ModelInfo
	closeOnce sync.Once
	closeErr  error
}

// NewHandle wraps a loaded backend.
func NewHandle(b Backend) *Handle {
	return &Handle{backend: b, info: b.Info()}
}

// Info describes the loaded model.
func (h *Handle) Info() types.ModelInfo { return h.info }

// EOS returns the end-of-sequence token id.
func (h *Handle) EOS() Token { return h.backend.EOS() }

// ContextSize is the model context window in tokens; 0 means unknown.
func (h *Handle) ContextSize() int { return h.info.ContextSize }

func (h *Handle) ApplyChatTemplate(ctx context.Context, turns []types.ChatTurn) (string, error) {
	return h.backend.ApplyChatTemplate(ctx, turns)
}

func (h *Handle) Encode(ctx context.Context, text string) ([]Token, error) {
	return h.backend.Encode(ctx, text)
}

func (h *Handle) Decode(ctx context.Context, tokens []Token, skipSpecial bool) (string, error) {
	return h.backend.Decode(ctx, tokens, skipSpecial)
}

func (h *Handle) Generate(ctx context.Context, input []Token, opts GenerateOptions) ([]Token, error) {
	return h.backend.Generate(ctx, input, opts)
}

// Close releases the backend. Safe to call more than once.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() { h.closeErr = h.backend.Close() })
	return h.closeErr
}
