package state

import (
	"errors"
	"sync"

	"github.com/wfunc/typerace/network"
)

// Phase is the position of a room in its race cycle.
type Phase string

const (
	PhaseWaiting   Phase = "waiting"
	PhaseCountdown Phase = "countdown"
	PhasePlaying   Phase = "playing"
	PhaseFinished  Phase = "finished"
)

// 状态机接口
type StateMachine interface {
	ChangeState(state State) error
	GetCurrentState() State
	AddTransition(from Phase, to Phase, condition func() bool) error
}

// 状态接口
type State interface {
	OnEnter()
	OnExit()
	GetID() Phase
	// HandleAction applies a client message. Messages the phase does not
	// accept are ignored and return nil; an error means the payload was malformed.
	HandleAction(userID string, msg *network.Message) error
	// OnPlayerLeft runs after userID has been removed from the roster.
	OnPlayerLeft(userID string)
}

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// BaseStateMachine only follows registered transitions.
type BaseStateMachine struct {
	currentState State
	transitions  map[Phase]map[Phase]func() bool // fromState -> toState -> condition
	mutex        sync.RWMutex
}

func NewBaseStateMachine(initialState State) *BaseStateMachine {
	machine := &BaseStateMachine{
		currentState: initialState,
		transitions:  make(map[Phase]map[Phase]func() bool),
	}
	initialState.OnEnter()
	return machine
}

// NewRaceStateMachine wires the waiting -> countdown -> playing -> finished
// -> waiting cycle.
func NewRaceStateMachine(initialState State) *BaseStateMachine {
	machine := NewBaseStateMachine(initialState)
	machine.AddTransition(PhaseWaiting, PhaseCountdown, nil)
	machine.AddTransition(PhaseCountdown, PhasePlaying, nil)
	machine.AddTransition(PhasePlaying, PhaseFinished, nil)
	machine.AddTransition(PhaseFinished, PhaseWaiting, nil)
	return machine
}

// ChangeState swaps the current state, then runs OnExit on the old one and
// OnEnter on the new one outside the lock so hooks may change state again.
func (sm *BaseStateMachine) ChangeState(newState State) error {
	sm.mutex.Lock()

	currentID := sm.currentState.GetID()
	newID := newState.GetID()

	condition, exists := sm.transitions[currentID][newID]
	if !exists || (condition != nil && !condition()) {
		sm.mutex.Unlock()
		return ErrTransitionNotAllowed
	}

	oldState := sm.currentState
	sm.currentState = newState
	sm.mutex.Unlock()

	oldState.OnExit()
	newState.OnEnter()
	return nil
}

func (sm *BaseStateMachine) GetCurrentState() State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

func (sm *BaseStateMachine) AddTransition(from Phase, to Phase, condition func() bool) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if _, exists := sm.transitions[from]; !exists {
		sm.transitions[from] = make(map[Phase]func() bool)
	}

	sm.transitions[from][to] = condition
	return nil
}

// 房间状态基础结构
type RoomStateBase struct {
	ID   Phase
	Room RoomContext
}

func (s *RoomStateBase) GetID() Phase {
	return s.ID
}

func (s *RoomStateBase) OnEnter() {}

func (s *RoomStateBase) OnExit() {}

func (s *RoomStateBase) HandleAction(userID string, msg *network.Message) error {
	return nil
}

func (s *RoomStateBase) OnPlayerLeft(userID string) {}
