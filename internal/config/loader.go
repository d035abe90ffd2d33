package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/subosito/gotenv"
	"gopkg.in/yaml.v3"
)

// Load reads a configuration file based on its extension and overlays it on Default().
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file %q: %w", path, err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse config file %q: %w", path, err)
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set.
// Missing files are ignored.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := gotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %q: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from LORACHAT_* environment variables.
func (c *Config) ApplyEnv() {
	c.Server.Addr = envStr("LORACHAT_ADDR", c.Server.Addr)
	c.Model.Backend = envStr("LORACHAT_BACKEND", c.Model.Backend)
	c.Model.BaseModel = envStr("LORACHAT_BASE_MODEL", c.Model.BaseModel)
	c.Model.AdapterPath = envStr("LORACHAT_ADAPTER", c.Model.AdapterPath)
	c.Model.ModelsDir = envStr("LORACHAT_MODELS_DIR", c.Model.ModelsDir)
	c.Model.LlamaBin = envStr("LORACHAT_LLAMA_BIN", c.Model.LlamaBin)
	c.Model.ServerURL = envStr("LORACHAT_SERVER_URL", c.Model.ServerURL)
	c.Model.CtxSize = envInt("LORACHAT_CTX_SIZE", c.Model.CtxSize)
	c.Model.GPULayers = envInt("LORACHAT_GPU_LAYERS", c.Model.GPULayers)
	c.Model.Threads = envInt("LORACHAT_THREADS", c.Model.Threads)
	c.Generation.MaxQueueDepth = envInt("LORACHAT_MAX_QUEUE_DEPTH", c.Generation.MaxQueueDepth)
	c.Log.Level = envStr("LORACHAT_LOG_LEVEL", c.Log.Level)
	c.Log.Format = envStr("LORACHAT_LOG_FORMAT", c.Log.Format)
	c.Log.File = envStr("LORACHAT_LOG_FILE", c.Log.File)
}

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
