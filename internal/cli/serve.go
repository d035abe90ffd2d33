package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"lorachat/internal/chat"
	"lorachat/internal/config"
	"lorachat/internal/httpapi"
	"lorachat/internal/logging"
	"lorachat/internal/model"
)

const shutdownTimeout = 5 * time.Second

type serveFlags struct {
	configPath string
	envFile    string
	addr       string
	backend    string
	baseModel  string
	adapter    string
	logLevel   string
}

func newServeCmd() *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the model and serve the chat API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServeConfig(cmd, f)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, nil)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", "", "Config file (.yaml, .yml, .json, .toml)")
	fl.StringVar(&f.envFile, "env-file", ".env", "Environment file loaded before LORACHAT_* overrides")
	fl.StringVar(&f.addr, "addr", "", "HTTP listen address (default :3412)")
	fl.StringVar(&f.backend, "backend", "", "Model backend: llama-server|remote|llama-cpp")
	fl.StringVar(&f.baseModel, "base-model", "", "Base model name or GGUF path")
	fl.StringVar(&f.adapter, "adapter", "", "LoRA adapter GGUF file or directory")
	fl.StringVar(&f.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	return cmd
}

// loadServeConfig layers defaults, the config file, the environment and
// explicitly set flags, in that order.
func loadServeConfig(cmd *cobra.Command, f serveFlags) (config.Config, error) {
	if f.envFile != "" {
		if err := config.LoadDotEnv(f.envFile); err != nil {
			return config.Config{}, err
		}
	}
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return config.Config{}, err
		}
	}
	cfg.ApplyEnv()
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Server.Addr = f.addr
	}
	if flags.Changed("backend") {
		cfg.Model.Backend = f.backend
	}
	if flags.Changed("base-model") {
		cfg.Model.BaseModel = f.baseModel
	}
	if flags.Changed("adapter") {
		cfg.Model.AdapterPath = f.adapter
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// runServe loads the model, serves HTTP until ctx ends and then shuts down.
// A failed model load is logged and the server runs in unavailable mode.
// onListen, when set, receives the bound address.
func runServe(ctx context.Context, cfg config.Config, onListen func(addr string)) error {
	log, closer, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer closer.Close()

	handle, loadErr := model.Load(ctx, cfg.Model, log, model.LogPublisher{Logger: log.With().Str("component", "model").Logger()})
	if handle != nil {
		defer func() {
			if err := handle.Close(); err != nil {
				log.Warn().Err(err).Msg("model close")
			}
		}()
	} else {
		log.Warn().Err(loadErr).Msg("serving without a model; chat requests will return 503")
	}
	h, err := chat.New(handle, loadErr, chat.ConfigFrom(cfg), log)
	if err != nil {
		return err
	}
	defer h.Close()

	httpapi.SetLogger(log)
	httpapi.SetDefaultLogLevel(cfg.Log.Level)
	httpapi.SetMaxBodyBytes(cfg.Server.MaxBodyBytes)
	c := cfg.Server.CORS
	httpapi.SetCORSOptions(c.Enabled, c.AllowedOrigins, c.AllowedMethods, c.AllowedHeaders)
	httpapi.SetBaseContext(ctx)

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	}
	srv := &http.Server{
		Handler:           httpapi.NewMux(h),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Info().Str("addr", ln.Addr().String()).Bool("model_ready", h.Ready()).Msg("lorachat listening")
	if onListen != nil {
		onListen(ln.Addr().String())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return shutdown(srv, log)
	})
	return g.Wait()
}

func shutdown(srv *http.Server, log zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info().Msg("shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
