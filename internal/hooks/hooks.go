// Package hooks dispatches dashboard lifecycle events to in-process handlers
// and configured shell commands.
package hooks

import (
	"context"
	"slices"
	"sync"

	"github.com/soyeahso/agentdash/internal/logging"
)

// Event names for the hook system.
const (
	EventServerStart     = "server_start"
	EventServerStop      = "server_stop"
	EventAgentRun        = "agent_run"
	EventActionCompleted = "action_completed"
	EventActionFailed    = "action_failed"
)

// AllEvents lists all known hook event names.
var AllEvents = []string{
	EventServerStart,
	EventServerStop,
	EventAgentRun,
	EventActionCompleted,
	EventActionFailed,
}

// Payload carries event data to hook handlers.
type Payload struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
}

// Handler is a function that handles a hook event.
// Returning an error logs the failure but does not stop processing.
type Handler func(ctx context.Context, p Payload) error

// Manager manages hook registrations and dispatches events.
// A nil *Manager drops every event.
type Manager struct {
	mu       sync.RWMutex
	handlers map[string][]namedHandler
	log      *logging.Logger
}

type namedHandler struct {
	name    string
	handler Handler
}

// NewManager creates a hook manager.
func NewManager(log *logging.Logger) *Manager {
	return &Manager{
		handlers: make(map[string][]namedHandler),
		log:      log.Sub("hooks"),
	}
}

// On registers a handler for the given event.
func (m *Manager) On(event, name string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[event] = append(m.handlers[event], namedHandler{name: name, handler: handler})
	m.log.Debug().Str("event", event).Str("handler", name).Msg("hook registered")
}

func (m *Manager) snapshot(event string) []namedHandler {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.handlers[event])
}

// Emit runs the event's handlers in registration order and waits for them.
func (m *Manager) Emit(ctx context.Context, event string, data map[string]any) {
	handlers := m.snapshot(event)
	if len(handlers) == 0 {
		return
	}

	payload := Payload{Event: event, Data: data}
	for _, h := range handlers {
		if err := h.handler(ctx, payload); err != nil {
			m.log.Warn().
				Err(err).
				Str("event", event).
				Str("handler", h.name).
				Msg("hook handler error")
		}
	}
}

// EmitAsync runs the event's handlers concurrently and returns immediately.
// Handlers get a context detached from ctx's cancellation.
func (m *Manager) EmitAsync(ctx context.Context, event string, data map[string]any) {
	handlers := m.snapshot(event)
	if len(handlers) == 0 {
		return
	}

	ctx = context.WithoutCancel(ctx)
	payload := Payload{Event: event, Data: data}
	for _, h := range handlers {
		go func() {
			if err := h.handler(ctx, payload); err != nil {
				m.log.Warn().
					Err(err).
					Str("event", event).
					Str("handler", h.name).
					Msg("async hook handler error")
			}
		}()
	}
}

// Count returns the number of handlers registered for an event.
func (m *Manager) Count(event string) int {
	return len(m.snapshot(event))
}

// Events returns the known events that have at least one handler, in
// AllEvents order followed by any custom events.
func (m *Manager) Events() []string {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var events []string
	for _, event := range AllEvents {
		if len(m.handlers[event]) > 0 {
			events = append(events, event)
		}
	}
	var custom []string
	for event, handlers := range m.handlers {
		if len(handlers) > 0 && !slices.Contains(AllEvents, event) {
			custom = append(custom, event)
		}
	}
	slices.Sort(custom)
	return append(events, custom...)
}
