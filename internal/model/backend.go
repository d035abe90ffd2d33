package model

import (
	"context"

	"lorachat/pkg/types"
)

// Token is a vocabulary id.
type Token = int32

// GenerateOptions mirrors the knobs of a causal LM generate call for a batch of one.
type GenerateOptions struct {
	// MaxNewTokens bounds the tokens produced beyond the input.
	MaxNewTokens int
	// DoSample selects sampling; when false decoding is greedy and
	// Temperature/TopP are ignored.
	DoSample    bool
	Temperature float32
	TopP        float32
	// PadTokenID is used for padding; callers pass the EOS id.
	PadTokenID Token
	// Seed for sampled decoding; 0 lets the runtime choose.
	Seed int
}

// Backend is a loaded model runtime. Implementations must be safe for
// sequential use from multiple goroutines; callers serialize Generate.
type Backend interface {
	// ApplyChatTemplate renders turns with the model's chat template and the
	// generation-prompt suffix. The result is text, not tokens.
	ApplyChatTemplate(ctx context.Context, turns []types.ChatTurn) (string, error)
	Encode(ctx context.Context, text string) ([]Token, error)
	Decode(ctx context.Context, tokens []Token, skipSpecial bool) (string, error)
	// Generate returns input followed by at most opts.MaxNewTokens new tokens.
	Generate(ctx context.Context, input []Token, opts GenerateOptions) ([]Token, error)
	EOS() Token
	Info() types.ModelInfo
	Close() error
}
