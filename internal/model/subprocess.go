package model

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"lorachat/internal/config"
)

// stderrTailBytes bounds the diagnostic stderr kept from llama-server.
const stderrTailBytes = 4096

// llamaProcess is a llama-server child serving the base model with the adapter applied.
type llamaProcess struct {
	cmd       *exec.Cmd
	baseURL   string
	pid       int
	stderr    *tailBuffer
	done      chan struct{}
	waitErr   error
	publisher EventPublisher
	log       zerolog.Logger
	stopOnce  sync.Once
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
	t.mu.Unlock()
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

// llamaServerArgs builds the llama-server command line.
func llamaServerArgs(cfg config.ModelConfig, basePath, adapterPath, host string, port int) []string {
	args := []string{
		"-m", basePath,
		"--lora", adapterPath,
		"--host", host,
		"--port", strconv.Itoa(port),
	}
	if cfg.CtxSize > 0 {
		args = append(args, "-c", strconv.Itoa(cfg.CtxSize))
	}
	if cfg.GPULayers > 0 {
		args = append(args, "-ngl", strconv.Itoa(cfg.GPULayers))
	}
	if cfg.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(cfg.Threads))
	}
	return append(args, cfg.ExtraArgs...)
}

// spawnLlamaServer starts llama-server and blocks until /health succeeds, the
// child exits or ctx ends. On failure the child is stopped and the stderr tail
// is folded into the error.
func spawnLlamaServer(ctx context.Context, cfg config.ModelConfig, basePath, adapterPath string, pub EventPublisher, log zerolog.Logger) (*llamaProcess, *serverClient, error) {
	bin, err := exec.LookPath(strings.TrimSpace(cfg.LlamaBin))
	if err != nil {
		return nil, nil, ErrDependencyUnavailable(fmt.Sprintf("llama-server not found (%s): set model.llama_bin or install llama.cpp", cfg.LlamaBin))
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	var port int
	if cfg.PortStart > 0 && cfg.PortEnd >= cfg.PortStart {
		port, err = pickPortInRange(host, cfg.PortStart, cfg.PortEnd)
	} else {
		port, err = pickFreePort(host)
	}
	if err != nil {
		return nil, nil, err
	}
	baseURL := fmt.Sprintf("http://%s", net.JoinHostPort(host, strconv.Itoa(port)))

	// Not tied to ctx: the child lives until Stop.
	cmd := exec.Command(bin, llamaServerArgs(cfg, basePath, adapterPath, host, port)...)
	p := &llamaProcess{
		cmd:       cmd,
		baseURL:   baseURL,
		stderr:    &tailBuffer{max: stderrTailBytes},
		done:      make(chan struct{}),
		publisher: pub,
		log:       log,
	}
	cmd.Stderr = p.stderr
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("start llama-server: %w", err)
	}
	p.pid = cmd.Process.Pid
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()
	log.Info().Int("pid", p.pid).Str("url", baseURL).Str("base", basePath).Str("adapter", adapterPath).Msg("llama-server started")
	pub.Publish(Event{Name: "spawn_start", Fields: map[string]any{"pid": p.pid, "host": host, "port": port}})

	client := newServerClient(baseURL)
	if err := client.waitHealthy(ctx, p.done); err != nil {
		select {
		case <-p.done:
			pub.Publish(Event{Name: "spawn_exit", Fields: map[string]any{"pid": p.pid, "error": fmt.Sprint(p.waitErr)}})
			return nil, nil, fmt.Errorf("llama-server exited early: %v; stderr tail: %s", p.waitErr, p.stderr.String())
		default:
		}
		pub.Publish(Event{Name: "spawn_timeout", Fields: map[string]any{"pid": p.pid}})
		_ = p.Stop()
		return nil, nil, fmt.Errorf("%w; stderr tail: %s", err, p.stderr.String())
	}
	log.Info().Int("pid", p.pid).Str("url", baseURL).Msg("llama-server ready")
	pub.Publish(Event{Name: "spawn_ready", Fields: map[string]any{"pid": p.pid, "url": baseURL}})
	return p, client, nil
}

// Stop sends SIGTERM and kills the child if it has not exited after 5s.
func (p *llamaProcess) Stop() error {
	p.stopOnce.Do(func() {
		select {
		case <-p.done:
			return
		default:
		}
		_ = p.cmd.Process.Signal(syscall.SIGTERM)
		select {
		case <-p.done:
		case <-time.After(5 * time.Second):
			_ = p.cmd.Process.Kill()
			<-p.done
		}
		p.log.Info().Int("pid", p.pid).Msg("llama-server stopped")
		p.publisher.Publish(Event{Name: "spawn_stop", Fields: map[string]any{"pid": p.pid}})
	})
	return nil
}

func pickPortInRange(host string, start, end int) (int, error) {
	for port := start; port <= end; port++ {
		l, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err != nil {
			continue
		}
		_ = l.Close()
		return port, nil
	}
	return 0, fmt.Errorf("no free port in range %d-%d", start, end)
}

func pickFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer l.Close()
	addr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("unexpected addr: %s", l.Addr())
	}
	return addr.Port, nil
}
