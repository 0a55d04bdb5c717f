package state

import (
	"sort"
	"time"
	"unicode/utf8"

	"github.com/wfunc/typerace/logger"
	"github.com/wfunc/typerace/models"
	"github.com/wfunc/typerace/network"
)

// FinishedState publishes the result and returns the room to the lobby
// after the reset delay.
type FinishedState struct {
	RoomStateBase
	Snippet   string
	StartedAt time.Time
	Result    *models.FinalizedResult
}

func NewFinishedState(room RoomContext, snippet string, startedAt time.Time) *FinishedState {
	return &FinishedState{
		RoomStateBase: RoomStateBase{
			ID:   PhaseFinished,
			Room: room,
		},
		Snippet:   snippet,
		StartedAt: startedAt,
	}
}

func (s *FinishedState) OnEnter() {
	s.Result = s.buildResult()
	logger.Log.Infof("Room %s: race finished, %d results", s.Room.GetID(), len(s.Result.PerPlayer))

	s.Room.SubmitResult(s.Result)
	s.Room.Broadcast(network.MsgTypeGameEnd, network.GameEndPayload{Results: resultEntries(s.Result.PerPlayer)})
	s.Room.After(s.Room.Settings().ResetDelay, s.reset)
}

// buildResult ranks players by WPM; equal WPM keeps join order.
func (s *FinishedState) buildResult() *models.FinalizedResult {
	players := s.Room.Roster().Players()
	results := make([]models.PlayerResult, 0, len(players))
	for _, p := range players {
		results = append(results, models.PlayerResult{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			WPM:         p.WPM,
			Accuracy:    p.Accuracy,
			CharsTyped:  p.CharsTyped,
			ElapsedMs:   p.FinishedAtMs,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].WPM > results[j].WPM
	})

	return &models.FinalizedResult{
		RoomCode:      s.Room.GetID(),
		PerPlayer:     results,
		SnippetLength: utf8.RuneCountInString(s.Snippet),
		FinishedAtMs:  s.Room.Now().UnixMilli(),
	}
}

func (s *FinishedState) reset() {
	if err := s.Room.ChangeState(NewWaitingState(s.Room)); err != nil {
		logger.Log.Errorf("Room %s: reset failed: %v", s.Room.GetID(), err)
		return
	}
	s.Room.Roster().ResetRace()
	s.Room.Broadcast(network.MsgTypeReset, network.PlayersPayload{Players: PlayerList(s.Room.Roster())})
}
