package state

import (
	"github.com/wfunc/typerace/logger"
	"github.com/wfunc/typerace/network"
)

// WaitingState is the lobby. Only the host's start message leaves it.
type WaitingState struct {
	RoomStateBase
}

func NewWaitingState(room RoomContext) *WaitingState {
	return &WaitingState{
		RoomStateBase: RoomStateBase{
			ID:   PhaseWaiting,
			Room: room,
		},
	}
}

func (s *WaitingState) HandleAction(userID string, msg *network.Message) error {
	if msg.Type != network.MsgTypeStart || !s.Room.Roster().IsHost(userID) {
		return nil
	}

	var payload network.StartPayload
	if err := msg.Payload(&payload); err != nil {
		return err
	}
	if payload.CodeSnippet == "" {
		return network.ErrMalformedMessage
	}

	logger.Log.Infof("Room %s: host %s started a race (%d chars)", s.Room.GetID(), userID, len(payload.CodeSnippet))
	return s.Room.ChangeState(NewCountdownState(s.Room, payload.CodeSnippet))
}
