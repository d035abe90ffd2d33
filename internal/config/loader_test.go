package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", `
server:
  addr: ":9999"
model:
  backend: remote
  server_url: http://127.0.0.1:8081
  adapter_path: /adapters/v2
generation:
  max_new_tokens: 64
prompt:
  system_prompts: ["be brief"]
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9999" || cfg.Model.Backend != BackendRemote || cfg.Model.ServerURL != "http://127.0.0.1:8081" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.Generation.MaxNewTokens != 64 || cfg.Prompt.SystemPrompts[0] != "be brief" {
		t.Fatalf("unexpected generation/prompt: %+v %+v", cfg.Generation, cfg.Prompt)
	}
	// untouched fields keep defaults
	if cfg.Generation.TopP != 0.9 || cfg.Model.CtxSize != 2048 {
		t.Fatalf("defaults not preserved: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"server":{"addr":":7070"},"model":{"base_model":"/m/base.gguf","gpu_layers":99},"log":{"level":"debug"}}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":7070" || cfg.Model.BaseModel != "/m/base.gguf" || cfg.Model.GPULayers != 99 || cfg.Log.Level != "debug" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "[server]\naddr=\":8081\"\n[model]\nbackend=\"llama-cpp\"\nctx_size=4096\n[generation]\ntemperature=0.0\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":8081" || cfg.Model.Backend != BackendLlamaCpp || cfg.Model.CtxSize != 4096 || cfg.Generation.Temperature != 0 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	if _, err := Load(filepath.Join(d, "missing.yaml")); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
	bad := map[string]string{
		"bad.yaml": "server: [\n",
		"bad.json": `{ "server": }`,
		"bad.toml": "[server]\naddr\n",
	}
	for name, content := range bad {
		if _, err := Load(writeTempFile(t, d, name, content)); err == nil {
			t.Fatalf("%s: expected parse error", name)
		}
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("LORACHAT_ADDR", ":1234")
	t.Setenv("LORACHAT_ADAPTER", "/srv/adapter.gguf")
	t.Setenv("LORACHAT_CTX_SIZE", "8192")
	t.Setenv("LORACHAT_GPU_LAYERS", "not-a-number")
	cfg := Default()
	cfg.ApplyEnv()
	if cfg.Server.Addr != ":1234" || cfg.Model.AdapterPath != "/srv/adapter.gguf" || cfg.Model.CtxSize != 8192 {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.Model.GPULayers != 0 {
		t.Fatalf("invalid int should keep default, got %d", cfg.Model.GPULayers)
	}
}

func TestLoadDotEnv(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, ".env", "LORACHAT_TEST_DOTENV=from-file\n")
	t.Setenv("LORACHAT_TEST_DOTENV", "")
	os.Unsetenv("LORACHAT_TEST_DOTENV")
	if err := LoadDotEnv(filepath.Join(d, "absent.env"), p); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("LORACHAT_TEST_DOTENV"); got != "from-file" {
		t.Fatalf("expected value from .env, got %q", got)
	}
}
