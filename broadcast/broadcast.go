// broadcast/broadcast.go
package broadcast

import (
	"github.com/wfunc/typerace/logger"
	"github.com/wfunc/typerace/monitor"
	"github.com/wfunc/typerace/session"
)

// 基于房间的广播器
// A failed send only affects that connection; the rest still get the frame.
type RoomBroadcaster struct {
	monitor *monitor.Monitor
}

func NewRoomBroadcaster(m *monitor.Monitor) *RoomBroadcaster {
	return &RoomBroadcaster{monitor: m}
}

// BroadcastToSessions sends the already encoded frame to every session and
// returns how many accepted it.
func (b *RoomBroadcaster) BroadcastToSessions(roomID string, sessions []*session.Session, data []byte) int {
	delivered := 0
	for _, s := range sessions {
		if err := s.Send(data); err != nil {
			logger.Log.Debugf("Room %s: drop frame for session %s (%s): %v", roomID, s.ID, s.UserID, err)
			b.monitor.AddBroadcastFailures(1)
			continue
		}
		delivered++
	}
	return delivered
}

// SendTo delivers a frame to a single session with the same error policy.
func (b *RoomBroadcaster) SendTo(roomID string, s *session.Session, data []byte) bool {
	return b.BroadcastToSessions(roomID, []*session.Session{s}, data) == 1
}
