// Package cache provides a staleness-gated, single-flight snapshot cache
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrNoData is returned when nothing has ever been cached and a refresh failed.
var ErrNoData = errors.New("no data yet")

// Entry is an immutable cached value and the time it was produced
type Entry[T any] struct {
	Value     T
	UpdatedAt time.Time
}

// StaleError accompanies a previously cached entry when its refresh failed.
type StaleError struct {
	UpdatedAt time.Time
	Err       error
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("serving data from %s: refresh failed: %v", e.UpdatedAt.Format(time.RFC3339), e.Err)
}

func (e *StaleError) Unwrap() error {
	return e.Err
}

// RefreshFunc produces a fresh value. It must not return a partial value
// alongside a nil error.
type RefreshFunc[T any] func(ctx context.Context) (T, error)

// Options configures a Cache
type Options struct {
	// TTL is the age at which an entry must be refreshed on the next read.
	TTL time.Duration
	// Timeout bounds a single refresh; zero means unbounded.
	Timeout time.Duration
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Cache holds a single value that is refreshed on read once it is TTL old.
// Concurrent stale reads share one refresh. Readers never block each other on
// the fresh path.
type Cache[T any] struct {
	refresh RefreshFunc[T]
	ttl     time.Duration
	timeout time.Duration
	clock   func() time.Time

	current   atomic.Pointer[Entry[T]]
	group     singleflight.Group
	refreshes atomic.Int64

	mu        sync.RWMutex
	listeners []func(*Entry[T])
}

// New creates a cache that calls refresh to fill itself
func New[T any](refresh RefreshFunc[T], opts Options) *Cache[T] {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Cache[T]{
		refresh: refresh,
		ttl:     opts.TTL,
		timeout: opts.Timeout,
		clock:   opts.Clock,
	}
}

// OnUpdate registers fn to run after every successful refresh. fn runs on the
// refreshing goroutine and must not block.
func (c *Cache[T]) OnUpdate(fn func(*Entry[T])) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Get is GetAt with the cache's clock
func (c *Cache[T]) Get(ctx context.Context) (*Entry[T], error) {
	return c.GetAt(ctx, c.clock())
}

// GetAt returns the cached entry, refreshing first if it is missing or at
// least TTL old at now. When a refresh fails the previous entry is returned
// with a *StaleError; with no previous entry the error wraps ErrNoData.
func (c *Cache[T]) GetAt(ctx context.Context, now time.Time) (*Entry[T], error) {
	if e := c.current.Load(); e != nil && !c.expired(e, now) {
		return e, nil
	}
	return c.await(ctx, func() (any, error) { return c.refreshAt(ctx, now, false) })
}

// Refresh forces a refresh regardless of age, sharing any refresh in flight.
func (c *Cache[T]) Refresh(ctx context.Context) (*Entry[T], error) {
	now := c.clock()
	return c.await(ctx, func() (any, error) { return c.refreshAt(ctx, now, true) })
}

// Peek returns the current entry without refreshing, or nil.
func (c *Cache[T]) Peek() *Entry[T] {
	return c.current.Load()
}

// Refreshes returns the number of successful refreshes so far
func (c *Cache[T]) Refreshes() int64 {
	return c.refreshes.Load()
}

// TTL returns the configured time-to-live
func (c *Cache[T]) TTL() time.Duration {
	return c.ttl
}

func (c *Cache[T]) expired(e *Entry[T], now time.Time) bool {
	return now.Sub(e.UpdatedAt) >= c.ttl
}

func (c *Cache[T]) await(ctx context.Context, fn func() (any, error)) (*Entry[T], error) {
	ch := c.group.DoChan("refresh", fn)

	var err error
	select {
	case res := <-ch:
		if res.Err == nil {
			return res.Val.(*Entry[T]), nil
		}
		err = res.Err
	case <-ctx.Done():
		err = ctx.Err()
	}

	if prev := c.current.Load(); prev != nil {
		return prev, &StaleError{UpdatedAt: prev.UpdatedAt, Err: err}
	}
	return nil, fmt.Errorf("%w: %w", ErrNoData, err)
}

func (c *Cache[T]) refreshAt(ctx context.Context, now time.Time, force bool) (*Entry[T], error) {
	// A flight that finished between our check and this one may already cover now.
	prev := c.current.Load()
	if !force && prev != nil && !c.expired(prev, now) {
		return prev, nil
	}

	// Waiters share this refresh, so it must outlive the caller that started it.
	ctx = context.WithoutCancel(ctx)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	value, err := c.refresh(ctx)
	if err != nil {
		return nil, err
	}

	updated := now
	if prev != nil && prev.UpdatedAt.After(updated) {
		updated = prev.UpdatedAt
	}
	e := &Entry[T]{Value: value, UpdatedAt: updated}
	c.current.Store(e)
	c.refreshes.Add(1)

	c.mu.RLock()
	listeners := c.listeners
	c.mu.RUnlock()
	for _, fn := range listeners {
		fn(e)
	}

	return e, nil
}
