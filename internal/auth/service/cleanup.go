package service

import (
	"context"
	"log"
	"time"
)

// CleanupStore is the slice of the storage layer the janitor needs.
type CleanupStore interface {
	DeleteExpired(ctx context.Context) (int64, error)
	DeleteExpiredActionTokens(ctx context.Context) (int64, error)
	DeleteStaleLoginAttempts(ctx context.Context, windowMinutes int) (int64, error)
}

// Janitor periodically purges expired refresh tokens, expired action tokens
// and stale login-attempt rows. Expiry is already enforced lazily on every
// read, so the purge is pure housekeeping: plain bounded DELETEs that never
// hold locks live traffic waits on.
type Janitor struct {
	store              CleanupStore
	interval           time.Duration
	loginWindowMinutes int
}

func NewJanitor(store CleanupStore, interval time.Duration, loginWindowMinutes int) *Janitor {
	return &Janitor{
		store:              store,
		interval:           interval,
		loginWindowMinutes: loginWindowMinutes,
	}
}

// Run blocks until ctx is cancelled. Callers start it in its own goroutine.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	if n, err := j.store.DeleteExpired(ctx); err != nil {
		log.Printf("warn: cleanup of refresh tokens failed: %v", err)
	} else if n > 0 {
		log.Printf("cleanup: removed %d expired refresh tokens", n)
	}

	if n, err := j.store.DeleteExpiredActionTokens(ctx); err != nil {
		log.Printf("warn: cleanup of action tokens failed: %v", err)
	} else if n > 0 {
		log.Printf("cleanup: removed %d expired action tokens", n)
	}

	if n, err := j.store.DeleteStaleLoginAttempts(ctx, j.loginWindowMinutes); err != nil {
		log.Printf("warn: cleanup of login attempts failed: %v", err)
	} else if n > 0 {
		log.Printf("cleanup: removed %d stale login attempts", n)
	}
}
