//go:build llama

package model

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"
	"github.com/jellydator/ttlcache/v3"

	"lorachat/internal/config"
	"lorachat/pkg/types"
)

// LlamaCppBuilt reports whether this binary links go-llama.cpp.
const LlamaCppBuilt = true

// eosUnknown is reported as the EOS id: go-llama.cpp stops at end of sequence
// internally and does not expose the id.
const eosUnknown Token = -1

// llamaCppBackend runs the base model with the adapter applied in process.
// go-llama.cpp predicts from text and streams pieces, so Encode remembers the
// text behind each sequence it returns and generated tokens are piece handles
// from a pieceTable, decodable only by this backend.
type llamaCppBackend struct {
	mu      sync.Mutex // Predict and the token callback are per model
	model   *llama.LLama
	threads int
	info    types.ModelInfo
	pieces  *pieceTable
	texts   *ttlcache.Cache[string, string]
}

func newLlamaCppBackend(cfg config.ModelConfig, info types.ModelInfo) (Backend, error) {
	opts := []llama.ModelOption{
		llama.SetContext(cfg.CtxSize),
		llama.SetLoraBase(info.BaseModel),
		llama.SetLoraAdapter(info.Adapter),
	}
	if cfg.GPULayers > 0 {
		opts = append(opts, llama.SetGPULayers(cfg.GPULayers))
	}
	if strings.EqualFold(cfg.Precision, "f16") {
		opts = append(opts, llama.EnableF16Memory)
	}
	m, err := llama.New(info.BaseModel, opts...)
	if err != nil {
		return nil, fmt.Errorf("go-llama.cpp load %s: %w", info.BaseModel, err)
	}
	info.EOSTokenID = eosUnknown
	texts := newTextMemo()
	go texts.Start()
	return &llamaCppBackend{
		model:   m,
		threads: cfg.Threads,
		info:    info,
		pieces:  newPieceTable(ChatMLSpecials),
		texts:   texts,
	}, nil
}

func sequenceKey(tokens []Token) string {
	var b strings.Builder
	for i, t := range tokens {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(int64(t), 10))
	}
	return b.String()
}

func (b *llamaCppBackend) ApplyChatTemplate(ctx context.Context, turns []types.ChatTurn) (string, error) {
	return RenderChatML(turns), nil
}

func (b *llamaCppBackend) Encode(ctx context.Context, text string) ([]Token, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.model == nil {
		return nil, errors.New("llama model closed")
	}
	_, ids, err := b.model.TokenizeString(text)
	if err != nil {
		return nil, err
	}
	b.texts.Set(sequenceKey(ids), text, ttlcache.DefaultTTL)
	return ids, nil
}

func (b *llamaCppBackend) Decode(ctx context.Context, tokens []Token, skipSpecial bool) (string, error) {
	var sb strings.Builder
	for _, t := range tokens {
		piece, special, ok := b.pieces.lookup(t)
		if !ok {
			return "", fmt.Errorf("token %d was not produced by this backend's generation", t)
		}
		if special && skipSpecial {
			continue
		}
		sb.WriteString(piece)
	}
	return sb.String(), nil
}

func (b *llamaCppBackend) Generate(ctx context.Context, input []Token, opts GenerateOptions) ([]Token, error) {
	item := b.texts.Get(sequenceKey(input))
	if item == nil {
		return nil, errors.New("input sequence was not produced by Encode")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.model == nil {
		return nil, errors.New("llama model closed")
	}
	out := make([]Token, 0, len(input)+opts.MaxNewTokens)
	out = append(out, input...)
	produced := 0
	b.model.SetTokenCallback(func(piece string) bool {
		if ctx.Err() != nil || produced >= opts.MaxNewTokens {
			return false
		}
		out = append(out, b.pieces.intern(piece))
		produced++
		return true
	})
	po := []llama.PredictOption{
		llama.SetTokens(opts.MaxNewTokens),
		llama.SetStopWords(ChatMLEnd, EndOfText),
	}
	if b.threads > 0 {
		po = append(po, llama.SetThreads(b.threads))
	}
	if opts.DoSample {
		po = append(po, llama.SetTemperature(opts.Temperature), llama.SetTopP(opts.TopP))
		if opts.Seed != 0 {
			po = append(po, llama.SetSeed(opts.Seed))
		}
	} else {
		// binding samples argmax when temperature <= 0
		po = append(po, llama.SetTemperature(0), llama.SetTopK(1))
	}
	if _, err := b.model.Predict(item.Value(), po...); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return out, nil
}

func (b *llamaCppBackend) EOS() Token { return eosUnknown }

func (b *llamaCppBackend) Info() types.ModelInfo { return b.info }

func (b *llamaCppBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.texts.Stop()
	if b.model != nil {
		b.model.Free()
		b.model = nil
	}
	return nil
}
