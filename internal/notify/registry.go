// internal/notify/registry.go
package notify

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Handler delivers a message to a target identified by its prefix.
type Handler func(target, message string) error

// Registry routes notifications to the appropriate handler based on target
// prefix (e.g. "console:", "telegram:"). Manual flush/rebuild notices and
// passive flush-failure alerts all go through here.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty notifier registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler for targets starting with prefix.
func (r *Registry) Register(prefix string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[prefix] = handler
}

// Notify finds the handler matching the target prefix and calls it.
// Returns an error if no handler is registered for the prefix.
func (r *Registry) Notify(target, message string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for prefix, handler := range r.handlers {
		if strings.HasPrefix(target, prefix) {
			return handler(target, message)
		}
	}
	return fmt.Errorf("no notifier for target: %s", target)
}

// ConsoleHandler returns a Handler that prints messages to w.
func ConsoleHandler(w io.Writer) Handler {
	return func(_, message string) error {
		_, err := fmt.Fprintln(w, message)
		return err
	}
}
