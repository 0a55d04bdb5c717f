package state

import (
	"github.com/wfunc/typerace/models"
	"github.com/wfunc/typerace/network"
	"github.com/wfunc/typerace/roster"
)

// PlayerList renders the roster as the players[] wire list, in join order.
func PlayerList(r *roster.Roster) []network.PlayerInfo {
	players := r.Players()
	list := make([]network.PlayerInfo, 0, len(players))
	for _, p := range players {
		list = append(list, network.PlayerInfo{
			UserID:   p.UserID,
			Username: p.DisplayName,
			Progress: p.Progress,
			WPM:      p.WPM,
			Finished: p.Finished,
			IsHost:   r.IsHost(p.UserID),
		})
	}
	return list
}

func resultEntries(results []models.PlayerResult) []network.ResultEntry {
	entries := make([]network.ResultEntry, 0, len(results))
	for _, r := range results {
		entries = append(entries, network.ResultEntry{
			UserID:     r.UserID,
			Username:   r.DisplayName,
			WPM:        r.WPM,
			Accuracy:   r.Accuracy,
			CharsTyped: r.CharsTyped,
			Time:       r.ElapsedMs,
		})
	}
	return entries
}
