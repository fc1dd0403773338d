// Package background runs fire-and-forget tasks that must finish before
// the process exits.
package background

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

type Background struct {
	wg  sync.WaitGroup
	log logrus.FieldLogger

	mu       sync.Mutex
	shutdown bool
}

func New(log logrus.FieldLogger) *Background {
	return &Background{log: log}
}

// Go runs fn in its own goroutine. A panic in fn is logged and swallowed.
// Tasks started after Shutdown are dropped.
func (b *Background) Go(fn func()) bool {
	b.mu.Lock()
	if b.shutdown {
		b.mu.Unlock()
		b.log.Warn("background task dropped: shutting down")
		return false
	}
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()

		defer func() {
			if r := recover(); r != nil {
				b.log.WithField("panic", r).Error("background task panicked")
			}
		}()

		fn()
	}()
	return true
}

// Shutdown waits for the running tasks or for ctx to be done.
func (b *Background) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	b.shutdown = true
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
		return fmt.Errorf("waiting for background tasks: %w", ctx.Err())
	}
}
