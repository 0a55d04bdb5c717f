// room/room.go
package room

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/wfunc/typerace/broadcast"
	"github.com/wfunc/typerace/logger"
	"github.com/wfunc/typerace/models"
	"github.com/wfunc/typerace/network"
	"github.com/wfunc/typerace/roster"
	"github.com/wfunc/typerace/session"
	"github.com/wfunc/typerace/state"
	"github.com/wfunc/typerace/timer"
)

const (
	inboxSize          = 64
	defaultSinkTimeout = 10 * time.Second
)

// Options configures a room. Zero values fall back to defaults.
type Options struct {
	Settings    state.Settings
	Clock       clockwork.Clock
	Broadcaster Broadcaster
	Sink        ScoreSink
	SinkTimeout time.Duration
}

// Room 是游戏房间的核心结构
// Every field below inbox is owned by the room goroutine; public methods
// hand closures to it and wait.
type Room struct {
	ID           string
	CreatedAt    time.Time
	StateMachine state.StateMachine

	settings    state.Settings
	clock       clockwork.Clock
	timers      *timer.TimerManager
	broadcaster Broadcaster
	sink        ScoreSink
	sinkTimeout time.Duration

	inbox     chan func()
	closeChan chan struct{}
	closeOnce sync.Once

	roster   *roster.Roster
	sessions map[string]*session.Session // connection handle -> session
	stopped  bool
}

// Snapshot is a read-only view of a room for the HTTP and RPC surfaces.
type Snapshot struct {
	Code        string               `json:"code"`
	Phase       state.Phase          `json:"phase"`
	Host        string               `json:"host"`
	Players     []network.PlayerInfo `json:"players"`
	CodeSnippet string               `json:"codeSnippet,omitempty"`
	StartTime   int64                `json:"startTime,omitempty"`
	Connections int                  `json:"connections"`
}

// NewRoom 创建一个新房间
func NewRoom(code string, opts Options) *Room {
	if opts.Settings == (state.Settings{}) {
		opts.Settings = state.DefaultSettings()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Broadcaster == nil {
		opts.Broadcaster = broadcast.NewRoomBroadcaster(nil)
	}
	if opts.SinkTimeout <= 0 {
		opts.SinkTimeout = defaultSinkTimeout
	}

	room := &Room{
		ID:          code,
		CreatedAt:   opts.Clock.Now(),
		settings:    opts.Settings,
		clock:       opts.Clock,
		timers:      timer.NewTimerManager(opts.Clock),
		broadcaster: opts.Broadcaster,
		sink:        opts.Sink,
		sinkTimeout: opts.SinkTimeout,
		inbox:       make(chan func(), inboxSize),
		closeChan:   make(chan struct{}),
		roster:      roster.New(),
		sessions:    make(map[string]*session.Session),
	}

	// 初始化状态机，将房间自身(room)作为上下文传入
	room.StateMachine = state.NewRaceStateMachine(state.NewWaitingState(room))

	go room.loop()

	return room
}

// --- 实现 state.RoomContext 接口 ---

// GetID 返回房间ID
func (r *Room) GetID() string {
	return r.ID
}

func (r *Room) Roster() *roster.Roster {
	return r.roster
}

func (r *Room) Settings() state.Settings {
	return r.settings
}

func (r *Room) Now() time.Time {
	return r.clock.Now()
}

// ChangeState 改变房间的状态机状态
func (r *Room) ChangeState(newState state.State) error {
	return r.StateMachine.ChangeState(newState)
}

// Broadcast encodes the message once and sends it to every connection in
// the room.
func (r *Room) Broadcast(msgType string, payload interface{}) {
	data, err := network.Encode(msgType, payload)
	if err != nil {
		logger.Log.Errorf("Room %s: encode %s: %v", r.ID, msgType, err)
		return
	}

	sessions := make([]*session.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.broadcaster.BroadcastToSessions(r.ID, sessions, data)
}

// After runs fn on the room goroutine once delay has passed, unless the
// room is closed first.
func (r *Room) After(delay time.Duration, fn func()) {
	if !r.timers.AddTimer(delay, func() {
		r.post(fn)
	}) {
		logger.Log.Debugf("Room %s: closed, delayed step dropped", r.ID)
	}
}

// SubmitResult hands the result to the sink in the background.
func (r *Room) SubmitResult(result *models.FinalizedResult) {
	if r.sink == nil {
		logger.Log.Warnf("Room %s: no score sink configured, result dropped", r.ID)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.sinkTimeout)
		defer cancel()

		key, err := r.sink.Record(ctx, result)
		if err != nil {
			logger.Log.Errorf("Room %s: record result: %v", r.ID, err)
			return
		}
		logger.Log.Infof("Room %s: result recorded as %s", r.ID, key)
	}()
}

// --- 房间核心逻辑 ---

// Join admits a connection in any phase. The joiner gets a full snapshot,
// everyone gets the updated roster.
func (r *Room) Join(s *session.Session) error {
	return r.do(func() {
		r.sessions[s.ID] = s
		_, created := r.roster.Add(s.UserID, s.DisplayName)
		if created {
			logger.Log.Infof("Room %s: %s (%s) joined", r.ID, s.UserID, s.DisplayName)
		} else {
			logger.Log.Infof("Room %s: %s opened another connection", r.ID, s.UserID)
		}

		r.sendTo(s, network.MsgTypeJoined, network.JoinedPayload{
			IsHost:  r.roster.IsHost(s.UserID),
			Players: state.PlayerList(r.roster),
			Status:  string(r.phase()),
		})
		r.Broadcast(network.MsgTypePlayerJoined, network.PlayersPayload{Players: state.PlayerList(r.roster)})
	})
}

// Leave drops a connection. The player goes away with its last connection.
func (r *Room) Leave(s *session.Session) error {
	return r.do(func() {
		if _, ok := r.sessions[s.ID]; !ok {
			return
		}
		delete(r.sessions, s.ID)

		for _, other := range r.sessions {
			if other.UserID == s.UserID {
				return
			}
		}

		removed, hostChanged := r.roster.Remove(s.UserID)
		if !removed {
			return
		}
		if hostChanged {
			logger.Log.Infof("Room %s: host passed to %s", r.ID, r.roster.Host())
		}
		logger.Log.Infof("Room %s: %s left", r.ID, s.UserID)

		r.Broadcast(network.MsgTypePlayerLeft, network.PlayersPayload{Players: state.PlayerList(r.roster)})
		r.StateMachine.GetCurrentState().OnPlayerLeft(s.UserID)
	})
}

// HandleMessage applies one inbound frame. Malformed frames and messages
// the current phase does not accept are dropped without a reply.
func (r *Room) HandleMessage(s *session.Session, frame []byte) error {
	msg, err := network.Decode(frame)
	if err != nil {
		logger.Log.Debugf("Room %s: drop frame from %s: %v", r.ID, s.UserID, err)
		return nil
	}

	return r.do(func() {
		if _, ok := r.sessions[s.ID]; !ok {
			return
		}
		if err := r.StateMachine.GetCurrentState().HandleAction(s.UserID, msg); err != nil {
			logger.Log.Debugf("Room %s: %s from %s rejected: %v", r.ID, msg.Type, s.UserID, err)
		}
	})
}

func (r *Room) Snapshot() (*Snapshot, error) {
	var snap *Snapshot
	err := r.do(func() {
		snap = &Snapshot{
			Code:        r.ID,
			Phase:       r.phase(),
			Host:        r.roster.Host(),
			Players:     state.PlayerList(r.roster),
			Connections: len(r.sessions),
		}
		switch current := r.StateMachine.GetCurrentState().(type) {
		case *state.PlayingState:
			snap.CodeSnippet = current.Snippet
			snap.StartTime = current.StartedAt.UnixMilli()
		case *state.FinishedState:
			snap.CodeSnippet = current.Snippet
			snap.StartTime = current.StartedAt.UnixMilli()
		}
	})
	return snap, err
}

// Phase is safe to call from any goroutine.
func (r *Room) Phase() state.Phase {
	return r.phase()
}

// CloseIfIdle closes the room when nobody is in it and no timed sequence
// is running. Countdown and finished always run to completion first.
func (r *Room) CloseIfIdle() bool {
	idle := false
	err := r.do(func() {
		if r.roster.Len() != 0 {
			return
		}
		switch r.phase() {
		case state.PhaseWaiting, state.PhasePlaying:
			idle = true
			r.stopped = true
		}
	})
	if err != nil {
		return true
	}
	if idle {
		r.Close()
	}
	return idle
}

// Close 关闭房间，停止主循环
func (r *Room) Close() {
	r.closeOnce.Do(func() {
		close(r.closeChan)
		r.timers.Stop()
	})
}

func (r *Room) phase() state.Phase {
	return r.StateMachine.GetCurrentState().GetID()
}

func (r *Room) sendTo(s *session.Session, msgType string, payload interface{}) {
	data, err := network.Encode(msgType, payload)
	if err != nil {
		logger.Log.Errorf("Room %s: encode %s: %v", r.ID, msgType, err)
		return
	}
	r.broadcaster.SendTo(r.ID, s, data)
}

// loop 是房间的主循环，串行执行所有事件
func (r *Room) loop() {
	for {
		select {
		case fn := <-r.inbox:
			fn()
		case <-r.closeChan:
			return
		}
	}
}

// do runs fn on the room goroutine and waits for it.
func (r *Room) do(fn func()) error {
	done := make(chan bool, 1)
	task := func() {
		if r.stopped {
			done <- false
			return
		}
		fn()
		done <- true
	}

	select {
	case r.inbox <- task:
	case <-r.closeChan:
		return ErrRoomClosed
	}

	select {
	case ran := <-done:
		if !ran {
			return ErrRoomClosed
		}
		return nil
	case <-r.closeChan:
		select {
		case ran := <-done:
			if ran {
				return nil
			}
		default:
		}
		return ErrRoomClosed
	}
}

// post queues fn without waiting, used by timer callbacks.
func (r *Room) post(fn func()) {
	task := func() {
		if !r.stopped {
			fn()
		}
	}
	select {
	case r.inbox <- task:
	case <-r.closeChan:
	}
}
