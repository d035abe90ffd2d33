package e2e

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"lorachat/internal/chat"
	"lorachat/internal/config"
	"lorachat/internal/httpapi"
	"lorachat/internal/model"
	"lorachat/internal/model/modeltest"
)

// newStack wires the full serving path against a fake llama-server reached
// through the remote backend.
func newStack(t *testing.T, fake *modeltest.Backend, mutate func(*config.Config)) (*httptest.Server, *chat.Handler) {
	t.Helper()
	llama := httptest.NewServer(modeltest.NewLlamaServer(fake))
	t.Cleanup(llama.Close)

	cfg := config.Default()
	cfg.Model.Backend = config.BackendRemote
	cfg.Model.ServerURL = llama.URL
	cfg.Model.LoadTimeoutSeconds = 5
	if mutate != nil {
		mutate(&cfg)
	}
	handle, err := model.Load(context.Background(), cfg.Model, zerolog.Nop(), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	t.Cleanup(func() { _ = handle.Close() })
	h, err := chat.New(handle, nil, chat.ConfigFrom(cfg), zerolog.Nop())
	if err != nil {
		t.Fatalf("chat.New: %v", err)
	}
	t.Cleanup(h.Close)
	srv := httptest.NewServer(httpapi.NewMux(h))
	t.Cleanup(srv.Close)
	return srv, h
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}

func httpPostJSON(t *testing.T, url string, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}
