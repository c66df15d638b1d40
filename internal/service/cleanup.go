package service

import (
	"errors"
	"sync"
)

// Cleanup holds release actions that must run exactly once, whether the
// invocation completes or is interrupted. Actions run in reverse order of
// registration.
type Cleanup struct {
	mu      sync.Mutex
	done    bool
	actions []func() error
}

// Add registers fn. Adding after Run has executed runs fn immediately.
func (c *Cleanup) Add(fn func() error) {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		_ = fn()
		return
	}
	c.actions = append(c.actions, fn)
	c.mu.Unlock()
}

// Run executes all registered actions once. Later calls return nil.
func (c *Cleanup) Run() error {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return nil
	}
	c.done = true
	actions := c.actions
	c.actions = nil
	c.mu.Unlock()

	var errs []error
	for i := len(actions) - 1; i >= 0; i-- {
		if err := actions[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
