package room

import (
	"context"
	"errors"

	"github.com/wfunc/typerace/models"
	"github.com/wfunc/typerace/session"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomClosed   = errors.New("room closed")
)

// Broadcaster defines the interface for broadcasting messages to a room.
// This is defined here to break the import cycle between room and broadcast.
type Broadcaster interface {
	BroadcastToSessions(roomID string, sessions []*session.Session, data []byte) int
	SendTo(roomID string, s *session.Session, data []byte) bool
}

// ScoreSink receives every finished race. The room never waits for it and
// ignores its outcome beyond logging.
type ScoreSink interface {
	Record(ctx context.Context, result *models.FinalizedResult) (string, error)
}
