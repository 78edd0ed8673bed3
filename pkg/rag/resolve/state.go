package resolve

import (
	"fmt"

	"resume-qa-be/internal/entity"
)

type State string

const (
	StateReceived     State = "RECEIVED"
	StateCacheCheck   State = "CACHE_CHECK"
	StateCacheHit     State = "CACHE_HIT"
	StateCacheMiss    State = "CACHE_MISS"
	StateRetrieve     State = "RETRIEVE"
	StateDraft        State = "DRAFT"
	StateEvaluate     State = "EVALUATE"
	StateRedraft      State = "REDRAFT"
	StateEscalateFlow State = "ESCALATE_FLOW"
	StateDone         State = "DONE"
)

const maxRedrafts = 1

var transitions = map[State][]State{
	StateReceived:   {StateCacheCheck},
	StateCacheCheck: {StateCacheHit, StateCacheMiss},
	StateCacheHit:   {StateDone},
	StateCacheMiss:  {StateRetrieve},
	StateRetrieve:   {StateDraft, StateEscalateFlow},
	StateDraft:      {StateEvaluate, StateEscalateFlow, StateDone},
	StateEvaluate:   {StateDone, StateRedraft, StateEscalateFlow},
	StateRedraft:    {StateEvaluate, StateEscalateFlow, StateDone},
}

func (s State) Terminal() bool {
	return s == StateDone || s == StateEscalateFlow
}

// Machine walks one resolution through the transition table and records the
// path it took. It is not safe for concurrent use.
type Machine struct {
	current  State
	trace    []State
	redrafts int
}

func NewMachine() *Machine {
	return &Machine{current: StateReceived, trace: []State{StateReceived}}
}

func (m *Machine) Current() State {
	return m.current
}

// Trace returns a copy of the visited states, starting with RECEIVED.
func (m *Machine) Trace() []State {
	return append([]State(nil), m.trace...)
}

func (m *Machine) CanRedraft() bool {
	return m.redrafts < maxRedrafts
}

func (m *Machine) Transition(to State) error {
	allowed := false
	for _, s := range transitions[m.current] {
		if s == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s", entity.ErrInvalidTransition, m.current, to)
	}
	if to == StateRedraft {
		if !m.CanRedraft() {
			return fmt.Errorf("%w: redraft limit %d reached", entity.ErrInvalidTransition, maxRedrafts)
		}
		m.redrafts++
	}
	m.current = to
	m.trace = append(m.trace, to)
	return nil
}
