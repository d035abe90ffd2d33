// Command fake_llama_server mimics llama-server for subprocess tests: it
// accepts the flags the model package passes and serves the fake backend.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lorachat/internal/model/modeltest"
)

func main() {
	var model, lora, host, port string
	var ctxSize, ngl, threads int
	flag.StringVar(&model, "m", "", "model path")
	flag.StringVar(&lora, "lora", "", "adapter path")
	flag.StringVar(&host, "host", "127.0.0.1", "host")
	flag.StringVar(&port, "port", "0", "port")
	flag.IntVar(&ctxSize, "c", 2048, "context size")
	flag.IntVar(&ngl, "ngl", 0, "gpu layers")
	flag.IntVar(&threads, "t", 0, "threads")
	flag.Parse()
	if model == "" || lora == "" {
		log.Fatal("both -m and --lora are required")
	}
	if _, err := os.Stat(model); err != nil {
		log.Fatalf("model: %v", err)
	}
	if _, err := os.Stat(lora); err != nil {
		log.Fatalf("lora: %v", err)
	}

	b := modeltest.New()
	b.CtxSize = ctxSize
	srv := &http.Server{Addr: net.JoinHostPort(host, port), Handler: modeltest.NewLlamaServer(b)}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	<-sigCh
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
