// Package timer provides the cancellable once-per-interval callback a game
// host uses to drive ticks.
//
// A Handle owns one goroutine. Stop cancels it without waiting for an
// in-flight callback, so a callback may safely stop its own handle and a
// caller holding a lock the callback needs cannot deadlock. Callbacks must
// still check whether the run they were started for is current: a tick
// already received when Stop is called may be delivered once more.
package timer

import (
	"context"
	"sync"
	"time"
)

// Ticker delivers ticks until stopped
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Source creates tickers
type Source interface {
	NewTicker(d time.Duration) Ticker
}

// RealSource is backed by time.Ticker
var RealSource Source = realSource{}

type realSource struct{}

func (realSource) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// Handle controls a running timer
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Start calls fn once per interval on a new goroutine until the handle is
// stopped or ctx is cancelled. A nil source means RealSource.
func Start(ctx context.Context, source Source, interval time.Duration, fn func()) *Handle {
	if source == nil {
		source = RealSource
	}
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	ticker := source.NewTicker(interval)

	go func() {
		defer close(h.done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				// prefer cancellation when both are ready
				if ctx.Err() != nil {
					return
				}
				fn()
			}
		}
	}()

	return h
}

// Stop cancels the timer. It is idempotent and never blocks.
func (h *Handle) Stop() {
	if h == nil {
		return
	}
	h.once.Do(h.cancel)
}

// Done is closed once the timer goroutine has exited
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
