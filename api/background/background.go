// Package background runs the tasks outliving the request that started them
// and the periodic jobs of the server, and waits for them on shutdown.
package background

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var ErrShuttingDown = errors.New("background: shutting down")

type Background struct {
	log    logrus.FieldLogger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func New(log logrus.FieldLogger) *Background {
	ctx, cancel := context.WithCancel(context.Background())
	return &Background{
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Go runs fn in its own goroutine. The context given to fn is cancelled on
// Shutdown. Panics are recovered and logged.
func (b *Background) Go(name string, fn func(ctx context.Context)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrShuttingDown
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer b.recover(name)
		fn(b.ctx)
	}()
	return nil
}

// Every runs fn each interval until Shutdown is called.
func (b *Background) Every(name string, interval time.Duration, fn func(ctx context.Context) error) error {
	return b.Go(name, func(ctx context.Context) {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}

			if err := b.run(ctx, name, fn); err != nil && !errors.Is(err, context.Canceled) {
				b.log.WithFields(logrus.Fields{
					"task":  name,
					"error": err,
				}).Error("background task failed")
			}
		}
	})
}

func (b *Background) run(ctx context.Context, name string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("PANIC [%v] TRACE[%s]", rec, string(debug.Stack()))
		}
	}()
	return fn(ctx)
}

func (b *Background) recover(name string) {
	if rec := recover(); rec != nil {
		b.log.WithFields(logrus.Fields{
			"task":  name,
			"panic": rec,
			"trace": string(debug.Stack()),
		}).Error("background task panicked")
	}
}

// Shutdown cancels the running tasks and waits for them to return, or for
// ctx to be done.
func (b *Background) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.cancel()

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
