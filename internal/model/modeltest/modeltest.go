// Package modeltest provides a deterministic in-memory model backend and a
// llama-server protocol fake built on it.
package modeltest

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"lorachat/internal/model"
	"lorachat/pkg/types"
)

// Special token ids sit above the Unicode range so they never collide with
// the rune ids of ordinary text.
const (
	IMStart   model.Token = 0x110000 + iota
	IMEnd                 // end of turn, reported as EOS
	EndOfText
)

// DefaultReply is what greedy generation produces.
const DefaultReply = "你好呀，我是洛天依~"

var specials = []struct {
	text string
	id   model.Token
}{
	{model.ChatMLStart, IMStart},
	{model.ChatMLEnd, IMEnd},
	{model.EndOfText, EndOfText},
}

// Backend is a model.Backend with a one-rune-per-token tokenizer and the
// ChatML template. Greedy generation emits Reply followed by IMEnd; sampled
// generation emits a shuffled Reply.
type Backend struct {
	// Reply is the text generation produces.
	Reply string
	// CtxSize is reported as the context window.
	CtxSize int
	// GenerateFunc, when set, replaces the built-in generation.
	GenerateFunc func(ctx context.Context, input []model.Token, opts model.GenerateOptions) ([]model.Token, error)
	// BeforeGenerate runs at the start of every Generate call.
	BeforeGenerate func()

	mu     sync.Mutex
	calls  int
	last   model.GenerateOptions
	closed bool
}

// New returns a Backend with DefaultReply and a 2048-token window.
func New() *Backend { return &Backend{Reply: DefaultReply, CtxSize: 2048} }

// NewHandle wraps b in a model.Handle.
func NewHandle(b *Backend) *model.Handle { return model.NewHandle(b) }

func (b *Backend) ApplyChatTemplate(ctx context.Context, turns []types.ChatTurn) (string, error) {
	return model.RenderChatML(turns), nil
}

func (b *Backend) Encode(ctx context.Context, text string) ([]model.Token, error) {
	var out []model.Token
	for i := 0; i < len(text); {
		matched := false
		for _, s := range specials {
			if strings.HasPrefix(text[i:], s.text) {
				out = append(out, s.id)
				i += len(s.text)
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		out = append(out, model.Token(r))
		i += size
	}
	return out, nil
}

func (b *Backend) Decode(ctx context.Context, tokens []model.Token, skipSpecial bool) (string, error) {
	var sb strings.Builder
	for _, t := range tokens {
		if text, ok := specialText(t); ok {
			if !skipSpecial {
				sb.WriteString(text)
			}
			continue
		}
		if t < 0 || t > utf8.MaxRune {
			return "", fmt.Errorf("unknown token id %d", t)
		}
		sb.WriteRune(rune(t))
	}
	return sb.String(), nil
}

func specialText(t model.Token) (string, bool) {
	for _, s := range specials {
		if s.id == t {
			return s.text, true
		}
	}
	return "", false
}

// IsSpecial reports whether t is one of the ChatML marker ids.
func IsSpecial(t model.Token) bool {
	_, ok := specialText(t)
	return ok
}

func (b *Backend) Generate(ctx context.Context, input []model.Token, opts model.GenerateOptions) ([]model.Token, error) {
	b.mu.Lock()
	b.calls++
	b.last = opts
	b.mu.Unlock()
	if b.BeforeGenerate != nil {
		b.BeforeGenerate()
	}
	if b.GenerateFunc != nil {
		return b.GenerateFunc(ctx, input, opts)
	}
	reply := []rune(b.Reply)
	if opts.DoSample {
		seed := int64(opts.Seed)
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(len(reply), func(i, j int) { reply[i], reply[j] = reply[j], reply[i] })
	}
	gen := make([]model.Token, 0, len(reply)+1)
	for _, r := range reply {
		gen = append(gen, model.Token(r))
	}
	gen = append(gen, IMEnd)
	if len(gen) > opts.MaxNewTokens {
		gen = gen[:opts.MaxNewTokens]
	}
	out := make([]model.Token, 0, len(input)+len(gen))
	out = append(out, input...)
	return append(out, gen...), nil
}

func (b *Backend) EOS() model.Token { return IMEnd }

func (b *Backend) Info() types.ModelInfo {
	return types.ModelInfo{
		Backend:     "fake",
		BaseModel:   "fake-base.gguf",
		Adapter:     "fake-adapter.gguf",
		Device:      "cpu",
		Precision:   "f32",
		ContextSize: b.CtxSize,
		EOSTokenID:  IMEnd,
	}
}

func (b *Backend) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

// Calls returns how many times Generate ran.
func (b *Backend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// LastOptions returns the options of the latest Generate call.
func (b *Backend) LastOptions() model.GenerateOptions {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// Closed reports whether Close was called.
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
