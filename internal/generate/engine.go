// Package generate turns a formatted prompt into a reply: encode, bounded
// decoding on the loaded model, removal of the echoed prompt, decode.
package generate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"

	"lorachat/internal/model"
)

// Model is the subset of *model.Handle the engine drives.
type Model interface {
	Encode(ctx context.Context, text string) ([]model.Token, error)
	Decode(ctx context.Context, tokens []model.Token, skipSpecial bool) (string, error)
	Generate(ctx context.Context, input []model.Token, opts model.GenerateOptions) ([]model.Token, error)
	EOS() model.Token
	ContextSize() int
}

// Params controls one generation.
type Params struct {
	MaxNewTokens int
	Mode         Mode
	// Seed for sampled decoding; 0 lets the runtime choose.
	Seed int
}

// Result is the decoded reply plus token accounting.
type Result struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Options configures an Engine.
type Options struct {
	// CacheTTL is how long prompt encodings stay cached; 0 disables the cache.
	CacheTTL time.Duration
	// CacheCapacity bounds the number of cached prompts; 0 means unbounded.
	CacheCapacity uint64
	Logger        zerolog.Logger
}

// Engine runs generations against a Model. Safe for concurrent use; callers
// serialize access to the model itself.
type Engine struct {
	model Model
	cache *ttlcache.Cache[string, []model.Token]
	log   zerolog.Logger
}

// New returns an Engine over m.
func New(m Model, opts Options) *Engine {
	e := &Engine{model: m, log: opts.Logger.With().Str("component", "generate").Logger()}
	if opts.CacheTTL > 0 {
		copts := []ttlcache.Option[string, []model.Token]{
			ttlcache.WithTTL[string, []model.Token](opts.CacheTTL),
		}
		if opts.CacheCapacity > 0 {
			copts = append(copts, ttlcache.WithCapacity[string, []model.Token](opts.CacheCapacity))
		}
		e.cache = ttlcache.New[string, []model.Token](copts...)
		go e.cache.Start()
	}
	return e
}

// Close stops the cache janitor.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Stop()
	}
}

func (e *Engine) encode(ctx context.Context, prompt string) ([]model.Token, error) {
	if e.cache != nil {
		if item := e.cache.Get(prompt); item != nil {
			encodeCacheTotal.WithLabelValues("hit").Inc()
			return item.Value(), nil
		}
		encodeCacheTotal.WithLabelValues("miss").Inc()
	}
	ids, err := e.model.Encode(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(prompt, ids, ttlcache.DefaultTTL)
	}
	return ids, nil
}

// Generate produces at most p.MaxNewTokens tokens after prompt and returns
// them decoded without special tokens. The prompt echo is never part of the
// result. A budget that overflows the context window yields *OverflowError;
// every other failure is an *Error.
func (e *Engine) Generate(ctx context.Context, prompt string, p Params) (Result, error) {
	if p.MaxNewTokens <= 0 {
		return Result{}, &Error{Stage: "params", Err: fmt.Errorf("max_new_tokens must be > 0, got %d", p.MaxNewTokens)}
	}
	if p.Mode == nil {
		return Result{}, &Error{Stage: "params", Err: errors.New("decode mode is not set")}
	}

	input, err := e.encode(ctx, prompt)
	if err != nil {
		return Result{}, &Error{Stage: "encode", Err: err}
	}
	if n := e.model.ContextSize(); n > 0 && len(input)+p.MaxNewTokens > n {
		return Result{}, &OverflowError{PromptTokens: len(input), MaxNewTokens: p.MaxNewTokens, ContextSize: n}
	}

	opts := model.GenerateOptions{
		MaxNewTokens: p.MaxNewTokens,
		PadTokenID:   e.model.EOS(),
		Seed:         p.Seed,
	}
	switch m := p.Mode.(type) {
	case Sampled:
		opts.DoSample = true
		opts.Temperature = float32(m.Temperature)
		opts.TopP = float32(m.TopP)
	case Greedy:
	default:
		return Result{}, &Error{Stage: "params", Err: fmt.Errorf("unknown decode mode %T", m)}
	}

	start := time.Now()
	out, err := e.model.Generate(ctx, input, opts)
	generationDuration.WithLabelValues(p.Mode.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		return Result{}, &Error{Stage: "generate", Err: err}
	}
	gen, err := newTokens(input, out)
	if err != nil {
		return Result{}, &Error{Stage: "generate", Err: err}
	}
	if len(gen) > p.MaxNewTokens {
		e.log.Warn().Int("got", len(gen)).Int("max_new_tokens", p.MaxNewTokens).Msg("backend exceeded token budget; truncating")
		gen = gen[:p.MaxNewTokens]
	}

	text, err := e.model.Decode(ctx, gen, true)
	if err != nil {
		return Result{}, &Error{Stage: "decode", Err: err}
	}
	tokensTotal.WithLabelValues("prompt").Add(float64(len(input)))
	tokensTotal.WithLabelValues("completion").Add(float64(len(gen)))
	e.log.Debug().
		Str("mode", p.Mode.String()).
		Int("input_tokens", len(input)).
		Int("new_tokens", len(gen)).
		Dur("took", time.Since(start)).
		Msg("generation finished")
	return Result{Text: text, PromptTokens: len(input), CompletionTokens: len(gen)}, nil
}

// newTokens strips the echoed input from out.
func newTokens(input, out []model.Token) ([]model.Token, error) {
	if len(out) < len(input) {
		return nil, fmt.Errorf("backend returned %d tokens for a %d-token input", len(out), len(input))
	}
	for i, t := range input {
		if out[i] != t {
			return nil, fmt.Errorf("backend output does not echo the input (first mismatch at %d)", i)
		}
	}
	return out[len(input):], nil
}
