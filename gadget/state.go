package gadget

import (
	"errors"
	"fmt"
)

// Session error taxonomy. ErrResourceBusy means the functionfs instance is
// already claimed by another process and the caller should not retry blindly.
// ErrDisconnected means the host side tore the session down.
var (
	ErrResourceBusy  = errors.New("gadget: resource busy")
	ErrDisconnected  = errors.New("gadget: host disconnected")
	ErrBadTransition = errors.New("gadget: illegal state transition")
)

// State is the lifecycle position of a gadget session. Transitions happen
// only in response to kernel events (or teardown); the data loops run only
// while the session is Active.
type State int

const (
	// Unbound: descriptors not yet accepted, or the function was unbound.
	Unbound State = iota
	// Bound: the UDC accepted the function but no host enabled it.
	Bound
	// Enabled: the host selected our configuration; endpoints are coming up.
	Enabled
	// Active: endpoints are open and the report loops are running.
	Active
	// Disabling: loops are draining after a disable or teardown request.
	Disabling
	// Errored is absorbing; a session that failed stays failed.
	Errored
)

func (s State) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case Bound:
		return "bound"
	case Enabled:
		return "enabled"
	case Active:
		return "active"
	case Disabling:
		return "disabling"
	case Errored:
		return "errored"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// legalTransitions holds the edges of the session lifecycle graph.
var legalTransitions = map[State][]State{
	Unbound:   {Bound, Errored},
	Bound:     {Enabled, Unbound, Errored},
	Enabled:   {Active, Disabling, Unbound, Errored},
	Active:    {Disabling, Errored},
	Disabling: {Bound, Unbound, Errored},
	Errored:   {},
}

// CanTransition reports whether moving from s to next is a legal lifecycle
// edge.
func (s State) CanTransition(next State) bool {
	for _, t := range legalTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}
