package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/autotag/pkg/domain"
	"github.com/google/uuid"
)

// HandlerFunc handles a file event.
type HandlerFunc func(ctx context.Context, event FileEvent) error

// SubscriptionID identifies one registration. Registering the same function
// twice yields two IDs and two deliveries.
type SubscriptionID string

// DispatcherOption configures an EventDispatcher.
type DispatcherOption func(*EventDispatcher)

// WithContinueOnError controls whether a failing handler stops delivery to later handlers.
func WithContinueOnError(enabled bool) DispatcherOption {
	return func(d *EventDispatcher) {
		d.ContinueOnError = enabled
	}
}

// EventDispatcher delivers file events to handlers registered per kind.
type EventDispatcher struct {
	mu       sync.RWMutex
	handlers map[Kind][]namedHandler
	// ContinueOnError determines if dispatch should continue when a handler fails
	ContinueOnError bool
}

// namedHandler wraps a handler with its name for debugging
type namedHandler struct {
	id      SubscriptionID
	name    string
	handler HandlerFunc
}

// NewEventDispatcher creates a new EventDispatcher. Handler failures are
// isolated by default.
func NewEventDispatcher(opts ...DispatcherOption) *EventDispatcher {
	d := &EventDispatcher{
		handlers:        make(map[Kind][]namedHandler),
		ContinueOnError: true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register appends a handler for kind and returns its subscription ID.
func (d *EventDispatcher) Register(kind Kind, name string, handler HandlerFunc) SubscriptionID {
	if handler == nil {
		return ""
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	id := SubscriptionID(uuid.New().String())
	d.handlers[kind] = append(d.handlers[kind], namedHandler{
		id:      id,
		name:    name,
		handler: handler,
	})
	return id
}

// Unregister removes the registration with the given ID. It reports whether
// anything was removed.
func (d *EventDispatcher) Unregister(kind Kind, id SubscriptionID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	handlers := d.handlers[kind]
	for i, nh := range handlers {
		if nh.id != id {
			continue
		}
		updated := make([]namedHandler, 0, len(handlers)-1)
		updated = append(updated, handlers[:i]...)
		updated = append(updated, handlers[i+1:]...)
		d.handlers[kind] = updated
		return true
	}
	return false
}

// Dispatch invokes every handler registered for event.Kind in registration
// order on the calling goroutine.
// If ContinueOnError is false, dispatch stops at the first error.
// If ContinueOnError is true, all handlers are executed and errors are collected.
// Panics in handlers are recovered and reported as failures.
func (d *EventDispatcher) Dispatch(ctx context.Context, event FileEvent) error {
	d.mu.RLock()
	handlers := append([]namedHandler(nil), d.handlers[event.Kind]...)
	continueOnError := d.ContinueOnError
	d.mu.RUnlock()

	if len(handlers) == 0 {
		return nil
	}

	var failures []HandlerFailure
	for _, nh := range handlers {
		if err := invoke(ctx, nh, event); err != nil {
			failures = append(failures, HandlerFailure{Handler: nh.name, Err: err})
			if !continueOnError {
				break
			}
		}
	}

	if len(failures) > 0 {
		return &DispatchError{Kind: event.Kind, Path: event.Path, Failures: failures}
	}
	return nil
}

func invoke(ctx context.Context, nh namedHandler, event FileEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return nh.handler(ctx, event)
}

// HasHandlers returns true if there are handlers registered for kind.
func (d *EventDispatcher) HasHandlers(kind Kind) bool {
	return d.HandlerCount(kind) > 0
}

// HandlerCount returns the number of handlers registered for kind.
func (d *EventDispatcher) HandlerCount(kind Kind) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[kind])
}

// Clear removes all registered handlers.
func (d *EventDispatcher) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = make(map[Kind][]namedHandler)
}

// HandlerFailure records one handler's error during dispatch.
type HandlerFailure struct {
	Handler string
	Err     error
}

// DispatchError contains the handler failures from one dispatch.
type DispatchError struct {
	Kind     Kind
	Path     string
	Failures []HandlerFailure
}

func (e *DispatchError) Error() string {
	if len(e.Failures) == 1 {
		f := e.Failures[0]
		return fmt.Sprintf("handler %s failed for %s event %s: %v", f.Handler, e.Kind, e.Path, f.Err)
	}
	return fmt.Sprintf("multiple dispatch errors (%d) for %s event %s", len(e.Failures), e.Kind, e.Path)
}

// Is allows errors.Is(err, domain.ErrDispatch).
func (e *DispatchError) Is(target error) bool {
	return target == domain.ErrDispatch
}

// Unwrap returns every handler error for errors.Is/As support.
func (e *DispatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}
