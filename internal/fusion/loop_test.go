package fusion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/imu_visualizer/internal/frame"
)

func TestLoop(t *testing.T) {
	t.Parallel()

	t.Run("chunks from many goroutines are serialized", func(t *testing.T) {
		t.Parallel()
		e, err := NewEngine(DefaultFusionConfig(), frame.StreamFraming)
		require.NoError(t, err)
		loop := NewLoop(e)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- loop.Run(ctx) }()

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 25; j++ {
					loop.OnChunk([]byte("0,0,100,0,0,0\n"))
				}
			}()
		}
		wg.Wait()

		require.Eventually(t, func() bool {
			var stats Stats
			err := loop.Do(ctx, func(e *Engine) error {
				stats = e.Stats()
				return nil
			})
			return err == nil && stats.Samples == 200
		}, 2*time.Second, 10*time.Millisecond)

		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
	})

	t.Run("Do returns the command error", func(t *testing.T) {
		t.Parallel()
		e, err := NewEngine(DefaultFusionConfig(), frame.StreamFraming)
		require.NoError(t, err)
		loop := NewLoop(e)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go loop.Run(ctx)

		err = loop.Do(ctx, func(e *Engine) error { return e.SetAlpha(2) })
		assert.ErrorIs(t, err, ErrInvalidConfig)

		require.NoError(t, loop.Do(ctx, func(e *Engine) error { return e.SetAlpha(0.5) }))
		var alpha float64
		require.NoError(t, loop.Do(ctx, func(e *Engine) error {
			alpha = e.Config().Alpha
			return nil
		}))
		assert.Equal(t, 0.5, alpha)
	})

	t.Run("disconnect is delivered after pending chunks", func(t *testing.T) {
		t.Parallel()
		rec := &recorder{}
		e, err := NewEngine(DefaultFusionConfig(), frame.StreamFraming, WithPresenter(rec))
		require.NoError(t, err)
		loop := NewLoop(e)

		loop.OnChunk([]byte("0,0,100,0,0,0\n"))
		loop.OnDisconnect(errors.New("gone"))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go loop.Run(ctx)

		require.Eventually(t, func() bool {
			var samples, disconnects int
			err := loop.Do(ctx, func(e *Engine) error {
				samples = len(rec.samples)
				disconnects = len(rec.disconnected)
				return nil
			})
			return err == nil && disconnects == 1 && samples == 1
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("stopped loop does not block callers", func(t *testing.T) {
		t.Parallel()
		e, err := NewEngine(DefaultFusionConfig(), frame.StreamFraming)
		require.NoError(t, err)
		loop := NewLoop(e)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_ = loop.Run(ctx)

		for i := 0; i < 100; i++ {
			loop.OnChunk([]byte("x\n"))
		}
		err = loop.Do(context.Background(), func(*Engine) error { return nil })
		assert.ErrorIs(t, err, ErrLoopStopped)
	})
}
