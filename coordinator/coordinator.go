// Package coordinator polls a device and caches its last good snapshot for the entities built on it.
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/brutella/hc/log"
)

// FetchFunc pulls a fresh snapshot from the device
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Coordinator owns the cached snapshot for one device
type Coordinator[T any] struct {
	name     string
	interval time.Duration
	fetch    FetchFunc[T]

	refreshMu sync.Mutex // serializes fetches

	mu        sync.RWMutex
	data      T
	hasData   bool
	lastErr   error
	success   bool
	updated   time.Time
	listeners map[int]func()
	nextID    int
}

// New returns a coordinator with no snapshot; call Refresh before using Data
func New[T any](name string, interval time.Duration, fetch FetchFunc[T]) *Coordinator[T] {
	return &Coordinator[T]{
		name:      name,
		interval:  interval,
		fetch:     fetch,
		listeners: make(map[int]func()),
	}
}

// Name is used in log lines
func (c *Coordinator[T]) Name() string {
	return c.name
}

// Data is the last successfully fetched snapshot
func (c *Coordinator[T]) Data() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data, c.hasData
}

// LastUpdateSuccess reports whether the most recent fetch worked
func (c *Coordinator[T]) LastUpdateSuccess() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.success
}

// LastError is the error from the most recent fetch, nil on success
func (c *Coordinator[T]) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// LastUpdated is when the snapshot was last replaced
func (c *Coordinator[T]) LastUpdated() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updated
}

// Refresh fetches now. On failure the previous snapshot is kept.
func (c *Coordinator[T]) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	data, err := c.fetch(ctx)

	c.mu.Lock()
	if err != nil {
		if c.success {
			log.Info.Printf("[%s] update failed: %s", c.name, err.Error())
		}
		c.success = false
		c.lastErr = err
	} else {
		if !c.success && c.hasData {
			log.Info.Printf("[%s] update recovered", c.name)
		}
		c.data = data
		c.hasData = true
		c.success = true
		c.lastErr = nil
		c.updated = time.Now()
	}
	listeners := make([]func(), 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	for _, l := range listeners {
		l()
	}
	return err
}

// RequestRefresh is called by entities after a write
func (c *Coordinator[T]) RequestRefresh(ctx context.Context) error {
	return c.Refresh(ctx)
}

// AddListener is called after every refresh attempt; the returned func removes it
func (c *Coordinator[T]) AddListener(fn func()) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Run polls until ctx is done. An interval of 0 disables polling.
func (c *Coordinator[T]) Run(ctx context.Context) {
	if c.interval <= 0 {
		log.Info.Printf("[%s] poll interval is 0, disabling checks", c.name)
		return
	}
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				log.Debug.Printf("[%s] poll: %s", c.name, err.Error())
			}
		}
	}
}
