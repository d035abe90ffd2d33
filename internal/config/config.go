package config

import (
	"fmt"
	"strings"
)

// Backend names accepted in model.backend.
const (
	BackendLlamaServer = "llama-server"
	BackendRemote      = "remote"
	BackendLlamaCpp    = "llama-cpp"
)

// MaxEncodeCacheCapacity bounds generation.encode_cache_capacity. The
// in-process backend sizes its token text memo from it.
const MaxEncodeCacheCapacity = 4096

// DefaultSystemPrompt is the persona injected when a request carries no system turn.
const DefaultSystemPrompt = "你现在要扮演是洛天依AI。你现在要扮演是洛天依AI说话简短、温柔。"

// Config holds runtime parameters for the service.
type Config struct {
	Server     ServerConfig     `json:"server" yaml:"server" toml:"server"`
	Model      ModelConfig      `json:"model" yaml:"model" toml:"model"`
	Generation GenerationConfig `json:"generation" yaml:"generation" toml:"generation"`
	Prompt     PromptConfig     `json:"prompt" yaml:"prompt" toml:"prompt"`
	Log        LogConfig        `json:"log" yaml:"log" toml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr         string     `json:"addr" yaml:"addr" toml:"addr"`
	MaxBodyBytes int64      `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	CORS         CORSConfig `json:"cors" yaml:"cors" toml:"cors"`
}

// CORSConfig is opt-in; nothing is added to the router unless Enabled.
type CORSConfig struct {
	Enabled        bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
	AllowedMethods []string `json:"allowed_methods" yaml:"allowed_methods" toml:"allowed_methods"`
	AllowedHeaders []string `json:"allowed_headers" yaml:"allowed_headers" toml:"allowed_headers"`
}

// ModelConfig locates the base model and adapter and picks the runtime that serves them.
type ModelConfig struct {
	Backend     string `json:"backend" yaml:"backend" toml:"backend"`
	BaseModel   string `json:"base_model" yaml:"base_model" toml:"base_model"`
	AdapterPath string `json:"adapter_path" yaml:"adapter_path" toml:"adapter_path"`
	ModelsDir   string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	// llama-server subprocess settings.
	LlamaBin  string   `json:"llama_bin" yaml:"llama_bin" toml:"llama_bin"`
	Host      string   `json:"host" yaml:"host" toml:"host"`
	PortStart int      `json:"port_start" yaml:"port_start" toml:"port_start"`
	PortEnd   int      `json:"port_end" yaml:"port_end" toml:"port_end"`
	ExtraArgs []string `json:"extra_args" yaml:"extra_args" toml:"extra_args"`
	// remote backend.
	ServerURL string `json:"server_url" yaml:"server_url" toml:"server_url"`
	// Runtime tunables shared by all backends.
	CtxSize            int    `json:"ctx_size" yaml:"ctx_size" toml:"ctx_size"`
	GPULayers          int    `json:"gpu_layers" yaml:"gpu_layers" toml:"gpu_layers"`
	Threads            int    `json:"threads" yaml:"threads" toml:"threads"`
	Precision          string `json:"precision" yaml:"precision" toml:"precision"`
	LoadTimeoutSeconds int    `json:"load_timeout_seconds" yaml:"load_timeout_seconds" toml:"load_timeout_seconds"`
	// Offline merge tool (llama.cpp llama-export-lora).
	ExportLoraBin string `json:"export_lora_bin" yaml:"export_lora_bin" toml:"export_lora_bin"`
}

// GenerationConfig holds request defaults and admission limits.
type GenerationConfig struct {
	MaxNewTokens          int     `json:"max_new_tokens" yaml:"max_new_tokens" toml:"max_new_tokens"`
	Temperature           float64 `json:"temperature" yaml:"temperature" toml:"temperature"`
	TopP                  float64 `json:"top_p" yaml:"top_p" toml:"top_p"`
	MaxQueueDepth         int     `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxQueueWaitSeconds   int     `json:"max_queue_wait_seconds" yaml:"max_queue_wait_seconds" toml:"max_queue_wait_seconds"`
	EncodeCacheTTLSeconds int     `json:"encode_cache_ttl_seconds" yaml:"encode_cache_ttl_seconds" toml:"encode_cache_ttl_seconds"`
	EncodeCacheCapacity   uint64  `json:"encode_cache_capacity" yaml:"encode_cache_capacity" toml:"encode_cache_capacity"`
}

// PromptConfig lists candidate personas; index 0 is the one applied.
type PromptConfig struct {
	SystemPrompts []string `json:"system_prompts" yaml:"system_prompts" toml:"system_prompts"`
}

// LogConfig configures zerolog output and optional file rotation.
type LogConfig struct {
	Level      string `json:"level" yaml:"level" toml:"level"`
	Format     string `json:"format" yaml:"format" toml:"format"`
	File       string `json:"file" yaml:"file" toml:"file"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days" toml:"max_age_days"`
	Compress   bool   `json:"compress" yaml:"compress" toml:"compress"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":3412",
			MaxBodyBytes: 1 << 20,
		},
		Model: ModelConfig{
			Backend:            BackendLlamaServer,
			BaseModel:          "Qwen1.5-0.5B-Chat",
			AdapterPath:        "./qwen_lora_result_v1",
			ModelsDir:          "~/models/llm",
			LlamaBin:           "llama-server",
			Host:               "127.0.0.1",
			CtxSize:            2048,
			Precision:          "f16",
			LoadTimeoutSeconds: 120,
			ExportLoraBin:      "llama-export-lora",
		},
		Generation: GenerationConfig{
			MaxNewTokens:          128,
			Temperature:           0.7,
			TopP:                  0.9,
			MaxQueueDepth:         32,
			MaxQueueWaitSeconds:   300,
			EncodeCacheTTLSeconds: 600,
			EncodeCacheCapacity:   256,
		},
		Prompt: PromptConfig{
			SystemPrompts: []string{DefaultSystemPrompt},
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 14,
			Compress:   true,
		},
	}
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("server.max_body_bytes must be >= 0, got %d", c.Server.MaxBodyBytes)
	}
	switch c.Model.Backend {
	case BackendLlamaServer:
		if strings.TrimSpace(c.Model.LlamaBin) == "" {
			return fmt.Errorf("model.llama_bin is required for backend %q", c.Model.Backend)
		}
	case BackendRemote:
		if strings.TrimSpace(c.Model.ServerURL) == "" {
			return fmt.Errorf("model.server_url is required for backend %q", c.Model.Backend)
		}
	case BackendLlamaCpp:
	default:
		return fmt.Errorf("model.backend %q must be one of %q, %q or %q", c.Model.Backend, BackendLlamaServer, BackendRemote, BackendLlamaCpp)
	}
	if c.Model.Backend != BackendRemote && strings.TrimSpace(c.Model.BaseModel) == "" {
		return fmt.Errorf("model.base_model must not be empty")
	}
	if c.Model.PortStart < 0 || c.Model.PortEnd < 0 || (c.Model.PortStart > 0 && c.Model.PortEnd < c.Model.PortStart) {
		return fmt.Errorf("model port range %d-%d is invalid", c.Model.PortStart, c.Model.PortEnd)
	}
	if c.Model.CtxSize < 0 || c.Model.GPULayers < 0 || c.Model.Threads < 0 {
		return fmt.Errorf("model.ctx_size, model.gpu_layers and model.threads must be >= 0")
	}
	g := c.Generation
	if g.MaxNewTokens <= 0 {
		return fmt.Errorf("generation.max_new_tokens must be > 0, got %d", g.MaxNewTokens)
	}
	if g.Temperature < 0 {
		return fmt.Errorf("generation.temperature must be >= 0, got %v", g.Temperature)
	}
	if g.TopP <= 0 || g.TopP > 1 {
		return fmt.Errorf("generation.top_p must be in (0,1], got %v", g.TopP)
	}
	if g.MaxQueueDepth < 0 || g.MaxQueueWaitSeconds < 0 || g.EncodeCacheTTLSeconds < 0 {
		return fmt.Errorf("generation queue and cache limits must be >= 0")
	}
	if g.EncodeCacheTTLSeconds > 86400 {
		return fmt.Errorf("generation.encode_cache_ttl_seconds must be <= 86400, got %d", g.EncodeCacheTTLSeconds)
	}
	if g.EncodeCacheTTLSeconds > 0 && (g.EncodeCacheCapacity == 0 || g.EncodeCacheCapacity > MaxEncodeCacheCapacity) {
		return fmt.Errorf("generation.encode_cache_capacity must be in 1..%d, got %d", MaxEncodeCacheCapacity, g.EncodeCacheCapacity)
	}
	if len(c.Prompt.SystemPrompts) == 0 || strings.TrimSpace(c.Prompt.SystemPrompts[0]) == "" {
		return fmt.Errorf("prompt.system_prompts must contain a non-empty first entry")
	}
	return nil
}
