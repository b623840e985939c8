package background

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLog() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestEveryRunsUntilShutdown(t *testing.T) {
	bg := New(testLog())

	var runs int64
	err := bg.Every("tick", 5*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt64(&runs, 1)
		return nil
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return atomic.LoadInt64(&runs) >= 3 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bg.Shutdown(ctx))

	after := atomic.LoadInt64(&runs)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt64(&runs))
}

func TestGoRecoversPanics(t *testing.T) {
	bg := New(testLog())

	require.NoError(t, bg.Go("boom", func(ctx context.Context) { panic("boom") }))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bg.Shutdown(ctx))
}

func TestGoAfterShutdown(t *testing.T) {
	bg := New(testLog())
	require.NoError(t, bg.Shutdown(context.Background()))

	err := bg.Go("late", func(ctx context.Context) {})
	assert.ErrorIs(t, err, ErrShuttingDown)
}

func TestShutdownTimeout(t *testing.T) {
	bg := New(testLog())

	release := make(chan struct{})
	defer close(release)
	require.NoError(t, bg.Go("stuck", func(ctx context.Context) { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bg.Shutdown(ctx), context.DeadlineExceeded)
}
