package e2e

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"lorachat/internal/chat"
	"lorachat/internal/config"
	"lorachat/internal/model"
	"lorachat/pkg/types"
)

// TestLiveLlamaServer_Hello greets a real LoRA-adapted model through a spawned llama-server.
// Skips unless LORACHAT_E2E_LLAMA_BIN, LORACHAT_E2E_BASE and LORACHAT_E2E_ADAPTER are set.
func TestLiveLlamaServer_Hello(t *testing.T) {
	bin := os.Getenv("LORACHAT_E2E_LLAMA_BIN")
	base := os.Getenv("LORACHAT_E2E_BASE")
	adapter := os.Getenv("LORACHAT_E2E_ADAPTER")
	if bin == "" || base == "" || adapter == "" {
		t.Skip("set LORACHAT_E2E_LLAMA_BIN, LORACHAT_E2E_BASE and LORACHAT_E2E_ADAPTER to run")
	}
	cfg := config.Default()
	cfg.Model.LlamaBin = bin
	cfg.Model.BaseModel = base
	cfg.Model.AdapterPath = adapter
	cfg.Model.LoadTimeoutSeconds = 180

	handle, err := model.Load(context.Background(), cfg.Model, zerolog.New(zerolog.NewTestWriter(t)), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer handle.Close()
	h, err := chat.New(handle, nil, chat.ConfigFrom(cfg), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	n, temp := 50, 0.0
	resp, err := h.Handle(ctx, types.ChatRequest{
		Messages:     []types.ChatTurn{{Role: types.RoleUser, Content: "你好"}},
		MaxNewTokens: &n,
		Temperature:  &temp,
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if strings.TrimSpace(resp.Response) == "" || strings.Contains(resp.Response, "<|im_") {
		t.Fatalf("unexpected reply %q", resp.Response)
	}
	t.Logf("reply: %s", resp.Response)
}
