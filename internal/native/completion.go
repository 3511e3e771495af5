package native

import (
	"context"
	"sync"
)

// Events receives the result of one native dialog. The native layer calls
// OnCompleted exactly once after the dialog closes; an empty slice means
// the user cancelled.
type Events interface {
	OnCompleted(paths []string)
}

// Completion is a single-use Events implementation that a provider call
// waits on. It is registered in a Registry so a native layer that only
// carries integer handles can complete it.
type Completion struct {
	handle   uintptr
	registry *Registry
	done     chan []string
	once     sync.Once
	close    sync.Once
}

var _ Events = (*Completion)(nil)

// Handle is the registry key of c.
func (c *Completion) Handle() uintptr { return c.handle }

// OnCompleted settles c. Calls after the first are ignored.
func (c *Completion) OnCompleted(paths []string) {
	c.once.Do(func() {
		out := make([]string, 0, len(paths))
		for _, p := range paths {
			if p != "" {
				out = append(out, p)
			}
		}
		c.done <- out
	})
}

// Wait blocks until OnCompleted runs. The native dialog has no cancel
// operation, so ctx only releases the caller; a later completion is dropped.
func (c *Completion) Wait(ctx context.Context) ([]string, error) {
	select {
	case paths := <-c.done:
		return paths, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close unregisters c. It is safe to call more than once and when the
// callback never fired.
func (c *Completion) Close() {
	c.close.Do(func() {
		if c.registry != nil {
			c.registry.remove(c.handle)
		}
	})
}

// Registry maps integer handles to live completions.
type Registry struct {
	mu      sync.Mutex
	next    uintptr
	entries map[uintptr]*Completion
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[uintptr]*Completion)}
}

// DefaultRegistry is used by providers created without an explicit registry.
var DefaultRegistry = NewRegistry()

// New registers a fresh completion.
func (r *Registry) New() *Completion {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	c := &Completion{
		handle:   r.next,
		registry: r,
		done:     make(chan []string, 1),
	}
	r.entries[c.handle] = c
	return c
}

// Complete settles the completion registered under handle. It reports
// false when the handle is unknown or was already closed.
func (r *Registry) Complete(handle uintptr, paths []string) bool {
	r.mu.Lock()
	c := r.entries[handle]
	r.mu.Unlock()
	if c == nil {
		return false
	}
	c.OnCompleted(paths)
	return true
}

// Len reports the number of registered completions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) remove(handle uintptr) {
	r.mu.Lock()
	delete(r.entries, handle)
	r.mu.Unlock()
}
