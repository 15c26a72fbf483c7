package core

// import_limiter.go bounds how many imports run at once. Each import holds a
// slot for its whole run; a request that cannot get one within maxWait fails
// with ErrTooManyImports. WaitForDrain lets shutdown wait for running imports.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyImports is returned when every slot stays busy for maxWait.
var ErrTooManyImports = errors.New("too many imports in progress, please try again later")

const (
	DefaultMaxConcurrentImports = 4
	DefaultImportMaxWait        = 30 * time.Second
)

// ImportLimiter is a counting semaphore for import runs.
type ImportLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

func NewImportLimiter(maxConcurrent int, maxWait time.Duration) *ImportLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentImports
	}
	if maxWait <= 0 {
		maxWait = DefaultImportMaxWait
	}
	return &ImportLimiter{slots: make(chan struct{}, maxConcurrent), maxWait: maxWait}
}

// Acquire takes a slot. The caller must Release it when the import ends.
func (l *ImportLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		getMetrics().activeImport.Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyImports
	}
}

// Release frees a slot taken by Acquire.
func (l *ImportLimiter) Release() {
	l.active.Add(-1)
	getMetrics().activeImport.Dec()
	<-l.slots
}

func (l *ImportLimiter) ActiveCount() int { return int(l.active.Load()) }

func (l *ImportLimiter) MaxConcurrent() int { return cap(l.slots) }

// WaitForDrain blocks until no import holds a slot or ctx ends.
func (l *ImportLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for l.ActiveCount() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// ImportLimiterStatus is a snapshot for the health endpoint.
type ImportLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

func (l *ImportLimiter) Status() ImportLimiterStatus {
	return ImportLimiterStatus{
		Active:        l.ActiveCount(),
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
	}
}
