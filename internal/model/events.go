package model

import "github.com/rs/zerolog"

// Event is a model lifecycle event (resolve, spawn, ready, failure, stop).
type Event struct {
	Name   string
	Fields map[string]any
}

// EventPublisher receives lifecycle events. Publish must not block or panic.
type EventPublisher interface {
	Publish(Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// LogPublisher writes each event as a debug line on the given logger.
type LogPublisher struct {
	Logger zerolog.Logger
}

func (p LogPublisher) Publish(e Event) {
	ev := p.Logger.Debug().Str("event", e.Name)
	if len(e.Fields) > 0 {
		ev = ev.Fields(e.Fields)
	}
	ev.Msg("model event")
}
