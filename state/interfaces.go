// state/interfaces.go
package state

import (
	"time"

	"github.com/wfunc/typerace/models"
	"github.com/wfunc/typerace/roster"
)

// Settings holds the timing knobs of one race cycle.
type Settings struct {
	CountdownFrom     int
	CountdownInterval time.Duration
	ResetDelay        time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		CountdownFrom:     3,
		CountdownInterval: time.Second,
		ResetDelay:        5 * time.Second,
	}
}

// RoomContext is what a phase needs from its room. All calls happen on the
// room's event goroutine, and callbacks passed to After run there too.
type RoomContext interface {
	GetID() string
	Roster() *roster.Roster
	Settings() Settings
	Now() time.Time
	Broadcast(msgType string, payload interface{})
	ChangeState(newState State) error
	After(delay time.Duration, fn func())
	SubmitResult(result *models.FinalizedResult)
}
