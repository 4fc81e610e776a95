package rig

import (
	"context"
	"sync/atomic"
	"time"
)

// Job states for Do.
const (
	jobQueued int32 = iota
	jobRunning
	jobAbandoned
)

// Do runs fn on the ticking goroutine during the next Tick and waits for its
// result. It is the only Rig method safe to call from other goroutines.
// A request whose ctx ends before it starts never runs; one that has started
// is waited for, so a nil error always means fn ran.
func (r *Rig) Do(ctx context.Context, fn func(*Rig) error) error {
	reply := make(chan error, 1)
	var state atomic.Int32
	job := func(r *Rig) {
		if !state.CompareAndSwap(jobQueued, jobRunning) {
			return
		}
		reply <- fn(r)
	}

	select {
	case r.mailbox <- job:
	case <-r.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-r.done:
		return ErrClosed
	case <-ctx.Done():
		if state.CompareAndSwap(jobQueued, jobAbandoned) {
			return ctx.Err()
		}
		return <-reply
	}
}

// drain runs queued requests in arrival order.
func (r *Rig) drain() {
	for {
		select {
		case job := <-r.mailbox:
			job(r)
		default:
			return
		}
	}
}

// Run ticks the rig every interval until ctx is done, making the calling
// goroutine the rig's owner.
func (r *Rig) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.Tick(time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case now := <-ticker.C:
			r.Tick(now)
		}
	}
}
