package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// serverClient speaks the llama.cpp llama-server HTTP protocol.
type serverClient struct {
	baseURL string
	http    *http.Client
}

func newServerClient(baseURL string) *serverClient {
	// Timeout stays 0: every call carries a context deadline or runs until the generation ends.
	return &serverClient{baseURL: strings.TrimRight(baseURL, "/"), http: &http.Client{Timeout: 0}}
}

type tokenizeRequest struct {
	Content      string `json:"content"`
	AddSpecial   bool   `json:"add_special"`
	ParseSpecial bool   `json:"parse_special"`
}

type tokenizeResponse struct {
	Tokens []Token `json:"tokens"`
}

type detokenizeRequest struct {
	Tokens []Token `json:"tokens"`
}

type detokenizeResponse struct {
	Content string `json:"content"`
}

type templateMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type applyTemplateRequest struct {
	Messages []templateMessage `json:"messages"`
}

type applyTemplateResponse struct {
	Prompt string `json:"prompt"`
}

type completionRequest struct {
	Prompt       []Token `json:"prompt"`
	NPredict     int     `json:"n_predict"`
	Temperature  float32 `json:"temperature"`
	TopP         float32 `json:"top_p"`
	TopK         int     `json:"top_k"`
	Seed         int     `json:"seed,omitempty"`
	CachePrompt  bool    `json:"cache_prompt"`
	ReturnTokens bool    `json:"return_tokens"`
	Stream       bool    `json:"stream"`
}

type completionResponse struct {
	Content         string  `json:"content"`
	Tokens          []Token `json:"tokens"`
	TokensPredicted int     `json:"tokens_predicted"`
	StopType        string  `json:"stop_type"`
}

type propsResponse struct {
	BOSToken                  string `json:"bos_token"`
	EOSToken                  string `json:"eos_token"`
	DefaultGenerationSettings struct {
		NCtx int `json:"n_ctx"`
	} `json:"default_generation_settings"`
}

func (c *serverClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("llama-server %s: encode request: %w", path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("llama-server %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("llama-server %s: %s: %s", path, resp.Status, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("llama-server %s: decode response: %w", path, err)
	}
	return nil
}

// health returns nil once the server has loaded its model (it answers 503 while loading).
func (c *serverClient) health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// waitHealthy polls /health until it succeeds, ctx ends or exited fires.
func (c *serverClient) waitHealthy(ctx context.Context, exited <-chan struct{}) error {
	var last error
	for {
		hctx, cancel := context.WithTimeout(ctx, time.Second)
		err := c.health(hctx)
		cancel()
		if err == nil {
			return nil
		}
		last = err
		select {
		case <-ctx.Done():
			return fmt.Errorf("llama-server not ready at %s: %w (last error: %v)", c.baseURL, ctx.Err(), last)
		case <-exited:
			return fmt.Errorf("llama-server exited before ready")
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (c *serverClient) props(ctx context.Context) (propsResponse, error) {
	var out propsResponse
	err := c.do(ctx, http.MethodGet, "/props", nil, &out)
	return out, err
}

func (c *serverClient) tokenize(ctx context.Context, text string, addSpecial bool) ([]Token, error) {
	var out tokenizeResponse
	if err := c.do(ctx, http.MethodPost, "/tokenize", tokenizeRequest{Content: text, AddSpecial: addSpecial, ParseSpecial: true}, &out); err != nil {
		return nil, err
	}
	return out.Tokens, nil
}

func (c *serverClient) detokenize(ctx context.Context, tokens []Token) (string, error) {
	var out detokenizeResponse
	if err := c.do(ctx, http.MethodPost, "/detokenize", detokenizeRequest{Tokens: tokens}, &out); err != nil {
		return "", err
	}
	return out.Content, nil
}

func (c *serverClient) applyTemplate(ctx context.Context, msgs []templateMessage) (string, error) {
	var out applyTemplateResponse
	if err := c.do(ctx, http.MethodPost, "/apply-template", applyTemplateRequest{Messages: msgs}, &out); err != nil {
		return "", err
	}
	return out.Prompt, nil
}

func (c *serverClient) completion(ctx context.Context, req completionRequest) (completionResponse, error) {
	var out completionResponse
	err := c.do(ctx, http.MethodPost, "/completion", req, &out)
	return out, err
}
