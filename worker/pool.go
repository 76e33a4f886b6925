package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many workers run at once and how many callers may wait
// for a slot. Callers beyond that are turned away with KindBusy.
type Pool struct {
	next     Invoker
	slots    *semaphore.Weighted
	capacity int64
	admitted atomic.Int64
}

var _ Invoker = (*Pool)(nil)

func NewPool(next Invoker, maxConcurrent, maxQueue int) *Pool {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if maxQueue < 0 {
		maxQueue = 0
	}
	return &Pool{
		next:     next,
		slots:    semaphore.NewWeighted(int64(maxConcurrent)),
		capacity: int64(maxConcurrent + maxQueue),
	}
}

func (p *Pool) Invoke(ctx context.Context, command string, args ...string) (json.RawMessage, error) {
	// admitted counts both running and queued callers
	if p.admitted.Add(1) > p.capacity {
		p.admitted.Add(-1)
		return nil, &Error{Kind: KindBusy, Command: command}
	}
	defer p.admitted.Add(-1)

	if err := p.slots.Acquire(ctx, 1); err != nil {
		kind := KindCanceled
		if errors.Is(err, context.DeadlineExceeded) {
			kind = KindTimeout
		}
		return nil, &Error{Kind: kind, Command: command, Err: err}
	}
	defer p.slots.Release(1)

	return p.next.Invoke(ctx, command, args...)
}

// InFlight reports callers currently running or queued.
func (p *Pool) InFlight() int64 {
	return p.admitted.Load()
}
