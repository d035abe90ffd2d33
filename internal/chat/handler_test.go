package chat

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"lorachat/internal/config"
	"lorachat/internal/model"
	"lorachat/internal/model/modeltest"
	"lorachat/pkg/types"
)

func testConfig() Config {
	return ConfigFrom(config.Default())
}

func newTestHandler(t *testing.T, b *modeltest.Backend, mutate func(*Config)) *Handler {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	h, err := New(modeltest.NewHandle(b), nil, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(h.Close)
	return h
}

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func userTurn(s string) []types.ChatTurn {
	return []types.ChatTurn{{Role: types.RoleUser, Content: s}}
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se interface{ StatusCode() int }
	if !errors.As(err, &se) {
		t.Fatalf("error %v carries no status code", err)
	}
	return se.StatusCode()
}

func TestHelloGreedyReturnsReply(t *testing.T) {
	b := modeltest.New()
	h := newTestHandler(t, b, nil)
	resp, err := h.Handle(context.Background(), types.ChatRequest{
		Messages:     userTurn("你好"),
		MaxNewTokens: intp(50),
		Temperature:  floatp(0),
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if resp.Response == "" {
		t.Fatalf("empty response")
	}
	if strings.Contains(resp.Response, "<|im_") || strings.Contains(resp.Response, "你好<") {
		t.Fatalf("response leaks template: %q", resp.Response)
	}
	if opts := b.LastOptions(); opts.DoSample || opts.MaxNewTokens != 50 {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestGreedyRepeatable(t *testing.T) {
	h := newTestHandler(t, modeltest.New(), nil)
	req := types.ChatRequest{Messages: userTurn("hi"), MaxNewTokens: intp(6), Temperature: floatp(0)}
	a, err := h.Handle(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	b, err := h.Handle(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("greedy responses differ: %q vs %q", a.Response, b.Response)
	}
	if n := len([]rune(a.Response)); n > 6 {
		t.Fatalf("response longer than budget: %d runes", n)
	}
}

func TestDefaultsApplyWhenOmitted(t *testing.T) {
	b := modeltest.New()
	h := newTestHandler(t, b, nil)
	if _, err := h.Handle(context.Background(), types.ChatRequest{Model: "qwen-lora", Messages: userTurn("hi")}); err != nil {
		t.Fatal(err)
	}
	got := b.LastOptions()
	if !got.DoSample || got.MaxNewTokens != 128 || got.Temperature != float32(0.7) || got.TopP != float32(0.9) {
		t.Fatalf("defaults not applied: %+v", got)
	}
}

func TestValidationErrors(t *testing.T) {
	cases := map[string]types.ChatRequest{
		"no messages":     {Messages: nil},
		"empty messages":  {Messages: []types.ChatTurn{}},
		"zero budget":     {Messages: userTurn("hi"), MaxNewTokens: intp(0)},
		"negative budget": {Messages: userTurn("hi"), MaxNewTokens: intp(-3)},
		"negative temp":   {Messages: userTurn("hi"), Temperature: floatp(-0.1)},
		"top_p zero":      {Messages: userTurn("hi"), TopP: floatp(0)},
		"top_p above one": {Messages: userTurn("hi"), TopP: floatp(1.01)},
		"unknown role":    {Messages: []types.ChatTurn{{Role: "tool", Content: "x"}}},
	}
	for name, req := range cases {
		b := modeltest.New()
		h := newTestHandler(t, b, nil)
		_, err := h.Handle(context.Background(), req)
		if !IsValidation(err) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
		if statusOf(t, err) != http.StatusBadRequest {
			t.Fatalf("%s: status %d", name, statusOf(t, err))
		}
		if b.Calls() != 0 {
			t.Fatalf("%s: generation attempted", name)
		}
	}
}

func TestContextOverflowIsValidation(t *testing.T) {
	b := modeltest.New()
	b.CtxSize = 64
	h := newTestHandler(t, b, nil)
	_, err := h.Handle(context.Background(), types.ChatRequest{Messages: userTurn("hi"), MaxNewTokens: intp(60)})
	if !IsValidation(err) || !strings.Contains(err.Error(), "context window") {
		t.Fatalf("expected overflow validation error, got %v", err)
	}
}

func TestModelUnavailableIsConsistent(t *testing.T) {
	h, err := New(nil, errors.New("llama-server not found"), testConfig(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	var first string
	for i := 0; i < 3; i++ {
		_, err := h.Handle(context.Background(), types.ChatRequest{Messages: userTurn("你好")})
		if !IsModelUnavailable(err) || statusOf(t, err) != http.StatusServiceUnavailable {
			t.Fatalf("call %d: expected model unavailable, got %v", i, err)
		}
		if i == 0 {
			first = err.Error()
		} else if err.Error() != first {
			t.Fatalf("message changed: %q vs %q", err.Error(), first)
		}
	}
	// Malformed requests are rejected before the load state is consulted.
	for _, req := range []types.ChatRequest{
		{},
		{Messages: userTurn("你好"), MaxNewTokens: intp(0)},
	} {
		_, err := h.Handle(context.Background(), req)
		if !IsValidation(err) || statusOf(t, err) != http.StatusBadRequest {
			t.Fatalf("expected validation error for %+v, got %v", req, err)
		}
	}
	st := h.Status()
	if st.State != "unavailable" || st.Model != nil || st.LoadError != "llama-server not found" || h.Ready() {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestBackendFailureIsGenerationError(t *testing.T) {
	b := modeltest.New()
	b.GenerateFunc = func(context.Context, []model.Token, model.GenerateOptions) ([]model.Token, error) {
		return nil, errors.New("llama-server /completion: connection refused")
	}
	h := newTestHandler(t, b, nil)
	_, err := h.Handle(context.Background(), types.ChatRequest{Messages: userTurn("hi")})
	if !IsGeneration(err) || statusOf(t, err) != http.StatusInternalServerError {
		t.Fatalf("expected generation error, got %v", err)
	}
	if strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("backend detail leaked into message: %q", err.Error())
	}
}

func TestPanicIsRecovered(t *testing.T) {
	b := modeltest.New()
	panicking := true
	b.GenerateFunc = func(ctx context.Context, input []model.Token, opts model.GenerateOptions) ([]model.Token, error) {
		if panicking {
			panic("index out of range")
		}
		return append(append([]model.Token(nil), input...), 'o', 'k'), nil
	}
	h := newTestHandler(t, b, nil)
	_, err := h.Handle(context.Background(), types.ChatRequest{Messages: userTurn("hi")})
	if !IsGeneration(err) {
		t.Fatalf("expected generation error, got %v", err)
	}
	// The slot must be released after a panic.
	panicking = false
	resp, err := h.Handle(context.Background(), types.ChatRequest{Messages: userTurn("hi")})
	if err != nil || resp.Response != "ok" {
		t.Fatalf("handler unusable after panic: %q %v", resp.Response, err)
	}
}

// blockingBackend holds every generation until release is closed.
func blockingBackend() (b *modeltest.Backend, started chan struct{}, release chan struct{}) {
	b = modeltest.New()
	started = make(chan struct{}, 8)
	release = make(chan struct{})
	b.BeforeGenerate = func() {
		started <- struct{}{}
		<-release
	}
	return b, started, release
}

func TestQueueFullIsTooBusy(t *testing.T) {
	b, started, release := blockingBackend()
	h := newTestHandler(t, b, func(c *Config) { c.MaxQueueDepth = 1 })
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = h.Handle(context.Background(), types.ChatRequest{Messages: userTurn("first")})
	}()
	<-started
	_, err := h.Handle(context.Background(), types.ChatRequest{Messages: userTurn("second")})
	if !IsTooBusy(err) || BusyReason(err) != "queue_full" || statusOf(t, err) != http.StatusTooManyRequests {
		t.Fatalf("expected queue_full, got %v", err)
	}
	close(release)
	wg.Wait()
}

func TestQueueWaitTimeoutIsTooBusy(t *testing.T) {
	b, started, release := blockingBackend()
	h := newTestHandler(t, b, func(c *Config) {
		c.MaxQueueDepth = 4
		c.MaxQueueWait = 50 * time.Millisecond
	})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = h.Handle(context.Background(), types.ChatRequest{Messages: userTurn("first")})
	}()
	<-started
	st := h.Status()
	if st.Inflight != 1 || st.QueueLen != 1 || st.MaxQueueDepth != 4 {
		t.Fatalf("unexpected status while running: %+v", st)
	}
	_, err := h.Handle(context.Background(), types.ChatRequest{Messages: userTurn("second")})
	if BusyReason(err) != "queue_timeout" {
		t.Fatalf("expected queue_timeout, got %v", err)
	}
	close(release)
	wg.Wait()
	if st := h.Status(); st.QueueLen != 0 || st.Inflight != 0 || st.GenerationsTotal != 1 {
		t.Fatalf("counters not released: %+v", st)
	}
}

func TestClientLeavingWhileQueuedIsDropped(t *testing.T) {
	b, started, release := blockingBackend()
	h := newTestHandler(t, b, func(c *Config) { c.MaxQueueWait = 0 })
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = h.Handle(context.Background(), types.ChatRequest{Messages: userTurn("first")})
	}()
	<-started
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := h.Handle(ctx, types.ChatRequest{Messages: userTurn("second")})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context error, got %v", err)
	}
	close(release)
	wg.Wait()
	if b.Calls() != 1 {
		t.Fatalf("queued request still generated: calls=%d", b.Calls())
	}
}

func TestGenerationSurvivesClientDisconnect(t *testing.T) {
	b := modeltest.New()
	ctx, cancel := context.WithCancel(context.Background())
	var sawCanceled bool
	b.GenerateFunc = func(gctx context.Context, input []model.Token, opts model.GenerateOptions) ([]model.Token, error) {
		cancel()
		sawCanceled = gctx.Err() != nil
		return append(append([]model.Token(nil), input...), 'h', 'i'), nil
	}
	h := newTestHandler(t, b, nil)
	resp, err := h.Handle(ctx, types.ChatRequest{Messages: userTurn("x")})
	if err != nil || resp.Response != "hi" {
		t.Fatalf("generation did not finish: %q %v", resp.Response, err)
	}
	if sawCanceled {
		t.Fatalf("generation context was canceled with the request")
	}
}

func TestTransitionsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	h := newTestHandler(t, modeltest.New(), nil)
	ctx := logger.With().Str("request_id", "req-1").Logger().WithContext(context.Background())
	if _, err := h.Handle(ctx, types.ChatRequest{Messages: userTurn("hi"), Temperature: floatp(0)}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, s := range []string{"received", "validated", "assembled", "generated", "responded"} {
		if !strings.Contains(out, `"state":"`+s+`"`) {
			t.Fatalf("missing transition %s in %s", s, out)
		}
	}
	if !strings.Contains(out, `"request_id":"req-1"`) || !strings.Contains(out, `"outcome":"ok"`) {
		t.Fatalf("request id or outcome missing: %s", out)
	}
}

func TestStatusReady(t *testing.T) {
	h := newTestHandler(t, modeltest.New(), nil)
	st := h.Status()
	if st.State != "ready" || st.Model == nil || st.Model.Backend != "fake" || !h.Ready() {
		t.Fatalf("unexpected status %+v", st)
	}
	if st.MaxQueueDepth != 32 || st.LoadError != "" {
		t.Fatalf("unexpected status %+v", st)
	}
	if len(st.SystemPrompts) != 1 || st.SystemPrompts[0] != testConfig().SystemPrompts[0] {
		t.Fatalf("persona candidates not reported: %q", st.SystemPrompts)
	}
	// The reported slice is a copy.
	st.SystemPrompts[0] = "changed"
	if h.Status().SystemPrompts[0] == "changed" {
		t.Fatalf("status exposes the policy's backing slice")
	}
}

func TestNewRejectsEmptyPolicy(t *testing.T) {
	cfg := testConfig()
	cfg.SystemPrompts = nil
	if _, err := New(modeltest.NewHandle(modeltest.New()), nil, cfg, zerolog.Nop()); err == nil {
		t.Fatalf("expected error")
	}
}
