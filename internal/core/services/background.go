package services

import (
	"context"
	"sync"
	"time"
)

// backgroundTasks runs work started by event listeners off the publisher's
// goroutine and lets shutdown wait for it.
type backgroundTasks struct {
	mu      sync.Mutex
	wg      sync.WaitGroup
	closed  bool
	timeout time.Duration
}

func newBackgroundTasks(timeout time.Duration) *backgroundTasks {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &backgroundTasks{timeout: timeout}
}

// Go starts fn with a context detached from the caller's cancellation and
// bounded by the task timeout. It reports false once shutdown has begun.
func (b *backgroundTasks) Go(ctx context.Context, fn func(ctx context.Context)) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
		defer cancel()
		fn(taskCtx)
	}()
	return true
}

// Shutdown stops accepting work and waits for in-flight tasks or ctx.
func (b *backgroundTasks) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
