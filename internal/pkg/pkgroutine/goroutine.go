package pkgroutine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxGoroutine is used when NewManager receives a non-positive limit.
const DefaultMaxGoroutine int = 10

var (
	// ErrPanic wraps the value recovered from a panicking task.
	ErrPanic = errors.New("goroutine panicked")
	// ErrSaturated is returned by TryGo when every slot is taken.
	ErrSaturated = errors.New("goroutine pool saturated")
)

// Manager runs functions in goroutines with a configurable concurrency limit.
//
// It collects errors returned by tasks and can be waited on using Wait.
type Manager struct {
	mu   sync.Mutex
	errs []error
	wg   sync.WaitGroup
	sem  *semaphore.Weighted
	size int
}

// NewManager creates a new Manager with the provided maximum concurrency.
func NewManager(maxGoroutine int) *Manager {
	if maxGoroutine < 1 {
		maxGoroutine = DefaultMaxGoroutine
	}

	return &Manager{
		sem:  semaphore.NewWeighted(int64(maxGoroutine)),
		size: maxGoroutine,
	}
}

// Go waits for a free slot and runs f in a goroutine. It returns an error
// without running f when pCtx ends before a slot frees up. Once started, f
// always runs so it can release whatever it owns.
func (g *Manager) Go(pCtx context.Context, f func(ctx context.Context) error) error {
	if err := g.sem.Acquire(pCtx, 1); err != nil {
		slog.WarnContext(pCtx, "goroutine canceled before start", "because", err)
		return err
	}

	g.spawn(pCtx, f)
	return nil
}

// TryGo runs f in a goroutine only if a slot is free right now. It returns
// ErrSaturated, or pCtx's error, without running f otherwise.
func (g *Manager) TryGo(pCtx context.Context, f func(ctx context.Context) error) error {
	if err := pCtx.Err(); err != nil {
		return err
	}
	if !g.sem.TryAcquire(1) {
		slog.WarnContext(pCtx, "goroutine pool saturated", "size", g.size)
		return ErrSaturated
	}

	g.spawn(pCtx, f)
	return nil
}

// spawn runs f on a slot the caller already holds.
func (g *Manager) spawn(pCtx context.Context, f func(ctx context.Context) error) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer g.sem.Release(1)
		defer func() {
			if rvr := recover(); rvr != nil {
				slog.ErrorContext(pCtx, "panic occurred in goroutine", "panic", rvr, "stack", string(debug.Stack()))
				g.collect(fmt.Errorf("%w: %v", ErrPanic, rvr))
			}
		}()

		if err := f(pCtx); err != nil {
			g.collect(err)
		}
	}()
}

func (g *Manager) collect(err error) {
	g.mu.Lock()
	g.errs = append(g.errs, err)
	g.mu.Unlock()
}

// Wait blocks until all scheduled goroutines finish and returns any collected errors.
func (g *Manager) Wait() error {
	g.wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	return errors.Join(g.errs...)
}
