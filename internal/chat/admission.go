package chat

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// admission admits up to cap(queue) requests and runs one generation at a time.
type admission struct {
	queue    chan struct{}
	slot     *semaphore.Weighted
	maxWait  time.Duration
	inflight atomic.Int32
}

func newAdmission(depth int, maxWait time.Duration) *admission {
	if depth < 1 {
		depth = 1
	}
	return &admission{
		queue:   make(chan struct{}, depth),
		slot:    semaphore.NewWeighted(1),
		maxWait: maxWait,
	}
}

// acquire reserves a queue place and then the generation slot. It returns a
// release func to be deferred, a tooBusyError on backpressure, or ctx.Err()
// when the caller left while waiting.
func (a *admission) acquire(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	select {
	case a.queue <- struct{}{}:
	default:
		return func() {}, tooBusyError{reason: "queue_full"}
	}
	queueLength.Inc()

	wctx := ctx
	if a.maxWait > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, a.maxWait)
		defer cancel()
	}
	if err := a.slot.Acquire(wctx, 1); err != nil {
		<-a.queue
		queueLength.Dec()
		if ctx.Err() != nil {
			return func() {}, ctx.Err()
		}
		return func() {}, tooBusyError{reason: "queue_timeout"}
	}
	a.inflight.Add(1)
	inflightGenerations.Inc()
	return func() {
		a.inflight.Add(-1)
		inflightGenerations.Dec()
		a.slot.Release(1)
		<-a.queue
		queueLength.Dec()
	}, nil
}

func (a *admission) queueLen() int { return len(a.queue) }

func (a *admission) depth() int { return cap(a.queue) }

func (a *admission) running() int { return int(a.inflight.Load()) }
