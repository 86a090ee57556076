package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeCleanupStore struct {
	sweeps       atomic.Int64
	windowSeen   atomic.Int64
	refreshErr   error
	actionErr    error
	attemptsErr  error
	refreshCount int64
}

func (f *fakeCleanupStore) DeleteExpired(_ context.Context) (int64, error) {
	f.sweeps.Add(1)
	return f.refreshCount, f.refreshErr
}

func (f *fakeCleanupStore) DeleteExpiredActionTokens(_ context.Context) (int64, error) {
	return 0, f.actionErr
}

func (f *fakeCleanupStore) DeleteStaleLoginAttempts(_ context.Context, windowMinutes int) (int64, error) {
	f.windowSeen.Store(int64(windowMinutes))
	return 0, f.attemptsErr
}

func TestJanitor_Sweep(t *testing.T) {
	t.Run("passes the login window through", func(t *testing.T) {
		store := &fakeCleanupStore{refreshCount: 3}
		j := NewJanitor(store, time.Minute, 15)

		j.sweep(context.Background())

		assert.Equal(t, int64(1), store.sweeps.Load())
		assert.Equal(t, int64(15), store.windowSeen.Load())
	})

	t.Run("one failing purge does not stop the others", func(t *testing.T) {
		store := &fakeCleanupStore{refreshErr: errors.New("db error")}
		j := NewJanitor(store, time.Minute, 15)

		j.sweep(context.Background())

		// The login-attempt purge still ran after the refresh purge failed.
		assert.Equal(t, int64(15), store.windowSeen.Load())
	})
}

func TestJanitor_Run(t *testing.T) {
	store := &fakeCleanupStore{}
	j := NewJanitor(store, 5*time.Millisecond, 15)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return store.sweeps.Load() >= 2
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop on context cancellation")
	}
}
