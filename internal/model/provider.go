package model

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"lorachat/internal/config"
	"lorachat/pkg/types"
)

// Load resolves the configured base model and adapter, brings up the selected
// backend and returns the process-wide Handle. It is called once before
// serving; callers treat an error as "model unavailable" and keep running.
func Load(ctx context.Context, cfg config.ModelConfig, log zerolog.Logger, pub EventPublisher) (*Handle, error) {
	if pub == nil {
		pub = noopPublisher{}
	}
	log = log.With().Str("component", "model").Str("backend", cfg.Backend).Logger()
	if cfg.LoadTimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.LoadTimeoutSeconds)*time.Second)
		defer cancel()
	}
	pub.Publish(Event{Name: "load_start", Fields: map[string]any{"backend": cfg.Backend}})
	start := time.Now()

	b, err := loadBackend(ctx, cfg, log, pub)
	if err != nil {
		modelLoaded.WithLabelValues(cfg.Backend).Set(0)
		missing := IsDependencyUnavailable(err)
		pub.Publish(Event{Name: "load_failed", Fields: map[string]any{"error": err.Error(), "missing_dependency": missing}})
		log.Error().Err(err).Bool("missing_dependency", missing).Msg("model load failed")
		return nil, err
	}
	h := NewHandle(b)
	modelLoaded.WithLabelValues(cfg.Backend).Set(1)
	info := h.Info()
	pub.Publish(Event{Name: "load_ready", Fields: map[string]any{"base": info.BaseModel, "adapter": info.Adapter}})
	log.Info().
		Str("base", info.BaseModel).
		Str("adapter", info.Adapter).
		Str("device", info.Device).
		Str("precision", info.Precision).
		Int("ctx", info.ContextSize).
		Int32("eos", info.EOSTokenID).
		Dur("took", time.Since(start)).
		Msg("model loaded")
	return h, nil
}

func loadBackend(ctx context.Context, cfg config.ModelConfig, log zerolog.Logger, pub EventPublisher) (Backend, error) {
	info := types.ModelInfo{
		Backend:     cfg.Backend,
		Device:      deviceDescription(cfg),
		Precision:   cfg.Precision,
		ContextSize: cfg.CtxSize,
	}
	switch cfg.Backend {
	case config.BackendRemote:
		url := strings.TrimSpace(cfg.ServerURL)
		if url == "" {
			return nil, &LoadError{Stage: "resolve", Err: fmt.Errorf("model.server_url is empty")}
		}
		info.BaseModel = cfg.BaseModel
		info.Adapter = cfg.AdapterPath
		info.Device = "remote"
		c := newServerClient(url)
		if err := c.waitHealthy(ctx, nil); err != nil {
			return nil, &LoadError{Stage: "connect", Err: err}
		}
		b, err := probeServer(ctx, c, info)
		if err != nil {
			return nil, &LoadError{Stage: "probe", Err: err}
		}
		return b, nil

	case config.BackendLlamaServer, config.BackendLlamaCpp:
		base, err := ResolveBaseModel(cfg.BaseModel, cfg.ModelsDir)
		if err != nil {
			return nil, &LoadError{Stage: "resolve", Err: err}
		}
		adapter, err := ResolveAdapter(cfg.AdapterPath)
		if err != nil {
			return nil, &LoadError{Stage: "resolve", Err: err}
		}
		info.BaseModel = base
		info.Adapter = adapter
		pub.Publish(Event{Name: "resolved", Fields: map[string]any{"base": base, "adapter": adapter}})
		if cfg.Backend == config.BackendLlamaCpp {
			b, err := newLlamaCppBackend(cfg, info)
			if err != nil {
				return nil, &LoadError{Stage: "open", Err: err}
			}
			return b, nil
		}
		proc, c, err := spawnLlamaServer(ctx, cfg, base, adapter, pub, log)
		if err != nil {
			return nil, &LoadError{Stage: "spawn", Err: err}
		}
		b, err := probeServer(ctx, c, info)
		if err != nil {
			_ = proc.Stop()
			return nil, &LoadError{Stage: "probe", Err: err}
		}
		b.proc = proc
		return b, nil
	}
	return nil, &LoadError{Stage: "resolve", Err: fmt.Errorf("unknown backend %q", cfg.Backend)}
}

func deviceDescription(cfg config.ModelConfig) string {
	if cfg.GPULayers > 0 {
		return fmt.Sprintf("gpu(ngl=%d)", cfg.GPULayers)
	}
	return "cpu"
}
