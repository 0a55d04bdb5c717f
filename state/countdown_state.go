package state

import (
	"github.com/wfunc/typerace/logger"
	"github.com/wfunc/typerace/network"
)

// CountdownState broadcasts N, N-1, ... 1 one interval apart and then starts
// the race. Once entered it always runs to completion, even if the room
// empties; progress and finish are ignored meanwhile.
type CountdownState struct {
	RoomStateBase
	Snippet   string
	remaining int
}

func NewCountdownState(room RoomContext, snippet string) *CountdownState {
	return &CountdownState{
		RoomStateBase: RoomStateBase{
			ID:   PhaseCountdown,
			Room: room,
		},
		Snippet: snippet,
	}
}

func (s *CountdownState) OnEnter() {
	s.remaining = s.Room.Settings().CountdownFrom
	s.tick()
}

func (s *CountdownState) tick() {
	if s.remaining <= 0 {
		if err := s.Room.ChangeState(NewPlayingState(s.Room, s.Snippet)); err != nil {
			logger.Log.Errorf("Room %s: countdown could not start the race: %v", s.Room.GetID(), err)
		}
		return
	}

	s.Room.Broadcast(network.MsgTypeCountdown, network.CountdownPayload{Count: s.remaining})
	s.remaining--
	s.Room.After(s.Room.Settings().CountdownInterval, s.tick)
}
