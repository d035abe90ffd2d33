package chat

import (
	"time"

	"lorachat/internal/config"
)

// Defaults fill request fields the caller omitted.
type Defaults struct {
	MaxNewTokens int
	Temperature  float64
	TopP         float64
}

// Config tunes a Handler.
type Config struct {
	Defaults Defaults
	// SystemPrompts are the persona candidates; the first is injected when a
	// request has no system turn.
	SystemPrompts []string
	// MaxQueueDepth bounds admitted requests, the running one included. Values
	// below 1 admit only the running request.
	MaxQueueDepth int
	// MaxQueueWait bounds the wait for the generation slot; 0 waits until the client leaves.
	MaxQueueWait time.Duration
	// EncodeCacheTTL and EncodeCacheCapacity configure the prompt encode cache.
	EncodeCacheTTL      time.Duration
	EncodeCacheCapacity uint64
}

// ConfigFrom maps the service configuration onto a handler Config.
func ConfigFrom(c config.Config) Config {
	g := c.Generation
	return Config{
		Defaults: Defaults{
			MaxNewTokens: g.MaxNewTokens,
			Temperature:  g.Temperature,
			TopP:         g.TopP,
		},
		SystemPrompts:       append([]string(nil), c.Prompt.SystemPrompts...),
		MaxQueueDepth:       g.MaxQueueDepth,
		MaxQueueWait:        time.Duration(g.MaxQueueWaitSeconds) * time.Second,
		EncodeCacheTTL:      time.Duration(g.EncodeCacheTTLSeconds) * time.Second,
		EncodeCacheCapacity: g.EncodeCacheCapacity,
	}
}
