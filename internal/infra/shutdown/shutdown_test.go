package shutdown

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdown_HooksRunInReverse(t *testing.T) {
	h := NewHandler(time.Second)

	var order []string
	for _, name := range []string{"history", "watcher", "server"} {
		h.OnShutdown(func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, h.Shutdown())
	assert.Equal(t, []string{"server", "watcher", "history"}, order)
}

func TestShutdown_RunsOnce(t *testing.T) {
	h := NewHandler(time.Second)
	calls := 0
	h.OnShutdown(func(context.Context) error {
		calls++
		return errors.New("flush history")
	})

	err1 := h.Shutdown()
	err2 := h.Shutdown()
	assert.Equal(t, 1, calls)
	assert.EqualError(t, err1, "flush history")
	assert.Equal(t, err1, err2)

	select {
	case <-h.Done():
	default:
		t.Fatal("Done should be closed after Shutdown")
	}
}

func TestShutdown_JoinsHookErrors(t *testing.T) {
	h := NewHandler(time.Second)
	errA := errors.New("close store")
	errB := errors.New("stop watcher")
	ranLast := false
	h.OnShutdown(func(context.Context) error {
		ranLast = true
		return errA
	})
	h.OnShutdown(func(context.Context) error { return errB })

	err := h.Shutdown()
	assert.True(t, ranLast, "a failing hook must not stop later ones")
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestShutdown_HookContextDeadline(t *testing.T) {
	h := NewHandler(50 * time.Millisecond)
	h.OnShutdown(func(ctx context.Context) error {
		deadline, ok := ctx.Deadline()
		assert.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 50*time.Millisecond)
		<-ctx.Done()
		return ctx.Err()
	})

	assert.ErrorIs(t, h.Shutdown(), context.DeadlineExceeded)
}

func TestWait_ContextDone(t *testing.T) {
	h := NewHandler(time.Second)
	ran := false
	h.OnShutdown(func(context.Context) error {
		ran = true
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sig, err := h.Wait(ctx)
	assert.Nil(t, sig)
	assert.NoError(t, err)
	assert.True(t, ran)
}

func TestWait_AfterShutdown(t *testing.T) {
	h := NewHandler(time.Second)
	h.OnShutdown(func(context.Context) error { return errors.New("save history") })
	_ = h.Shutdown()

	sig, err := h.Wait(context.Background())
	assert.Nil(t, sig)
	assert.EqualError(t, err, "save history")
}

func TestWait_Signal(t *testing.T) {
	h := NewHandler(time.Second)
	done := make(chan struct{})
	var got any
	go func() {
		defer close(done)
		sig, _ := h.Wait(context.Background())
		got = sig
	}()

	// Give Wait time to install its handler before signalling.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after SIGTERM")
	}
	assert.Equal(t, syscall.SIGTERM, got)
}

func TestOnShutdown_Concurrent(t *testing.T) {
	h := NewHandler(time.Second)
	var (
		mu    sync.Mutex
		calls int
		wg    sync.WaitGroup
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.OnShutdown(func(context.Context) error {
				mu.Lock()
				calls++
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	require.NoError(t, h.Shutdown())
	assert.Equal(t, 20, calls)
}
