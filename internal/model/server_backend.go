package model

import (
	"context"
	"fmt"

	"lorachat/pkg/types"
)

// serverBackend drives a llama-server instance, either spawned by us (proc
// set) or already running (remote).
type serverBackend struct {
	client   *serverClient
	proc     *llamaProcess
	info     types.ModelInfo
	eos      Token
	specials map[Token]struct{}
}

// probeServer reads the context window and resolves the EOS and special
// token ids the decode path needs to skip.
func probeServer(ctx context.Context, c *serverClient, info types.ModelInfo) (*serverBackend, error) {
	props, err := c.props(ctx)
	if err != nil {
		return nil, err
	}
	if props.DefaultGenerationSettings.NCtx > 0 {
		info.ContextSize = props.DefaultGenerationSettings.NCtx
	}
	b := &serverBackend{client: c, specials: make(map[Token]struct{})}

	eosText := props.EOSToken
	if eosText == "" {
		eosText = EndOfText
	}
	eos, err := c.tokenize(ctx, eosText, false)
	if err != nil {
		return nil, err
	}
	if len(eos) != 1 {
		return nil, fmt.Errorf("eos token %q does not map to a single id (got %v)", eosText, eos)
	}
	b.eos = eos[0]
	b.specials[b.eos] = struct{}{}

	markers := append([]string{props.BOSToken}, ChatMLSpecials...)
	for _, m := range markers {
		if m == "" {
			continue
		}
		ids, err := c.tokenize(ctx, m, false)
		if err != nil {
			return nil, err
		}
		// Markers the vocabulary does not know split into several plain tokens.
		if len(ids) == 1 {
			b.specials[ids[0]] = struct{}{}
		}
	}
	info.EOSTokenID = b.eos
	b.info = info
	return b, nil
}

func (b *serverBackend) ApplyChatTemplate(ctx context.Context, turns []types.ChatTurn) (string, error) {
	msgs := make([]templateMessage, len(turns))
	for i, t := range turns {
		msgs[i] = templateMessage{Role: string(t.Role), Content: t.Content}
	}
	return b.client.applyTemplate(ctx, msgs)
}

func (b *serverBackend) Encode(ctx context.Context, text string) ([]Token, error) {
	return b.client.tokenize(ctx, text, true)
}

func (b *serverBackend) Decode(ctx context.Context, tokens []Token, skipSpecial bool) (string, error) {
	if skipSpecial {
		kept := make([]Token, 0, len(tokens))
		for _, t := range tokens {
			if _, ok := b.specials[t]; !ok {
				kept = append(kept, t)
			}
		}
		tokens = kept
	}
	if len(tokens) == 0 {
		return "", nil
	}
	return b.client.detokenize(ctx, tokens)
}

func (b *serverBackend) Generate(ctx context.Context, input []Token, opts GenerateOptions) ([]Token, error) {
	req := completionRequest{
		Prompt:       input,
		NPredict:     opts.MaxNewTokens,
		Seed:         opts.Seed,
		ReturnTokens: true,
	}
	if opts.DoSample {
		req.Temperature = opts.Temperature
		req.TopP = opts.TopP
		req.CachePrompt = true
	} else {
		// KV cache reuse changes batch sizes and with them the logits, so
		// greedy runs always reprocess the prompt to stay repeatable.
		// llama.cpp treats temperature <= 0 as argmax; top_k 1 makes it explicit.
		req.Temperature = 0
		req.TopP = 1
		req.TopK = 1
	}
	resp, err := b.client.completion(ctx, req)
	if err != nil {
		return nil, err
	}
	out := make([]Token, 0, len(input)+len(resp.Tokens))
	out = append(out, input...)
	return append(out, resp.Tokens...), nil
}

func (b *serverBackend) EOS() Token { return b.eos }

func (b *serverBackend) Info() types.ModelInfo { return b.info }

func (b *serverBackend) Close() error {
	if b.proc != nil {
		return b.proc.Stop()
	}
	return nil
}
