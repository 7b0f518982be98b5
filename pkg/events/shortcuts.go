package events

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Shortcuts maps accelerators such as "ctrl+n" to handlers.
type Shortcuts struct {
	mu       sync.Mutex
	handlers map[string]func()
}

// NewShortcuts returns an empty registry.
func NewShortcuts() *Shortcuts {
	return &Shortcuts{handlers: make(map[string]func())}
}

func normalize(accel string) string {
	return strings.ToLower(strings.ReplaceAll(accel, " ", ""))
}

// Register binds accel to fn. An accelerator can only be bound once.
func (s *Shortcuts) Register(accel string, fn func()) error {
	key := normalize(accel)
	if key == "" {
		return fmt.Errorf("events: empty accelerator")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.handlers[key]; ok {
		return fmt.Errorf("events: accelerator %q already registered", accel)
	}
	s.handlers[key] = fn
	return nil
}

// Trigger runs the handler bound to accel and reports whether there was one.
func (s *Shortcuts) Trigger(accel string) bool {
	s.mu.Lock()
	fn, ok := s.handlers[normalize(accel)]
	s.mu.Unlock()
	if ok {
		fn()
	}
	return ok
}

// Registered lists bound accelerators.
func (s *Shortcuts) Registered() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.handlers))
	for k := range s.handlers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// UnregisterAll removes every binding.
func (s *Shortcuts) UnregisterAll() {
	s.mu.Lock()
	s.handlers = make(map[string]func())
	s.mu.Unlock()
}
