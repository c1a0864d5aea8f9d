package watch

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Lifecycle states and events. These stay untyped string constants so they
// convert to statekit.StateID and statekit.EventType.
const (
	StateStopped = "stopped"
	StateRunning = "running"

	EventStart = "start"
	EventStop  = "stop"
)

// LifecycleContext carries the observer name into the state machine.
type LifecycleContext struct {
	Observer string
}

// Lifecycle tracks whether an observer is running.
type Lifecycle struct {
	interpreter *statekit.Interpreter[LifecycleContext]
}

// NewLifecycle builds a stopped lifecycle for the named observer.
func NewLifecycle(observer string) (*Lifecycle, error) {
	builder := statekit.NewMachine[LifecycleContext]("observer-lifecycle").
		WithInitial(statekit.StateID(StateStopped)).
		WithContext(LifecycleContext{Observer: observer})

	builder.State(StateStopped).
		On(EventStart).Target(StateRunning).
		Done()

	builder.State(StateRunning).
		On(EventStop).Target(StateStopped).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build lifecycle machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &Lifecycle{interpreter: interpreter}, nil
}

// Transition applies event and fails if the current state does not accept it.
func (l *Lifecycle) Transition(event string) error {
	before := l.Current()
	l.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	if l.Current() != before {
		return nil
	}
	return fmt.Errorf("the action '%s' is not allowed while the observer is '%s'", event, before)
}

// Current returns the current state name.
func (l *Lifecycle) Current() string {
	return string(l.interpreter.State().Value)
}

// Running reports whether the observer is running.
func (l *Lifecycle) Running() bool {
	return l.Current() == StateRunning
}
