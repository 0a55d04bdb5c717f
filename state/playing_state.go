package state

import (
	"time"

	"github.com/wfunc/typerace/logger"
	"github.com/wfunc/typerace/network"
)

// PlayingState is the race itself. Reported numbers are taken as-is.
type PlayingState struct {
	RoomStateBase
	Snippet   string
	StartedAt time.Time
}

func NewPlayingState(room RoomContext, snippet string) *PlayingState {
	return &PlayingState{
		RoomStateBase: RoomStateBase{
			ID:   PhasePlaying,
			Room: room,
		},
		Snippet: snippet,
	}
}

func (s *PlayingState) OnEnter() {
	s.StartedAt = s.Room.Now()
	logger.Log.Infof("Room %s: race started with %d players", s.Room.GetID(), s.Room.Roster().Len())
	s.Room.Broadcast(network.MsgTypeGameStart, network.GameStartPayload{
		CodeSnippet: s.Snippet,
		StartTime:   s.StartedAt.UnixMilli(),
	})
}

func (s *PlayingState) HandleAction(userID string, msg *network.Message) error {
	switch msg.Type {
	case network.MsgTypeProgress:
		return s.handleProgress(userID, msg)
	case network.MsgTypeFinish:
		return s.handleFinish(userID, msg)
	}
	return nil
}

func (s *PlayingState) handleProgress(userID string, msg *network.Message) error {
	player, ok := s.Room.Roster().Get(userID)
	if !ok {
		return nil
	}

	var payload network.ProgressPayload
	if err := msg.Payload(&payload); err != nil {
		return err
	}

	player.Progress = payload.Progress
	player.WPM = payload.WPM
	player.Accuracy = payload.Accuracy
	player.CharsTyped = payload.CharsTyped

	s.Room.Broadcast(network.MsgTypeProgress, network.PlayersPayload{Players: PlayerList(s.Room.Roster())})
	return nil
}

func (s *PlayingState) handleFinish(userID string, msg *network.Message) error {
	player, ok := s.Room.Roster().Get(userID)
	if !ok || player.Finished {
		return nil
	}

	var payload network.FinishPayload
	if err := msg.Payload(&payload); err != nil {
		return err
	}

	player.Finished = true
	player.FinishedAtMs = s.Room.Now().Sub(s.StartedAt).Milliseconds()
	player.Progress = 100
	player.WPM = payload.WPM
	player.Accuracy = payload.Accuracy
	player.CharsTyped = payload.CharsTyped

	s.Room.Broadcast(network.MsgTypePlayerFinished, network.PlayerFinishedPayload{
		UserID:   player.UserID,
		Username: player.DisplayName,
		WPM:      player.WPM,
		Time:     player.FinishedAtMs,
	})

	s.finishIfComplete()
	return nil
}

// OnPlayerLeft ends the race when the last unfinished player drops out.
func (s *PlayingState) OnPlayerLeft(userID string) {
	s.finishIfComplete()
}

func (s *PlayingState) finishIfComplete() {
	if !s.Room.Roster().AllFinished() {
		return
	}
	if err := s.Room.ChangeState(NewFinishedState(s.Room, s.Snippet, s.StartedAt)); err != nil {
		logger.Log.Errorf("Room %s: could not finish the race: %v", s.Room.GetID(), err)
	}
}
