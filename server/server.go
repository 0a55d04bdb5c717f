package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/wfunc/typerace/logger"
	"github.com/wfunc/typerace/models"
	"github.com/wfunc/typerace/monitor"
	"github.com/wfunc/typerace/network"
	"github.com/wfunc/typerace/room"
	"github.com/wfunc/typerace/session"
)

type Options struct {
	HTTPAddress    string
	AllowedOrigins []string
	Connection     network.ConnectionConfig
}

type GameServer struct {
	addr           string
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	monitor        *monitor.Monitor
	connCfg        network.ConnectionConfig
	httpServer     *http.Server
	connections    sync.WaitGroup
}

func NewGameServer(opts Options, rooms *room.Manager, sessions *session.Manager, m *monitor.Monitor) *GameServer {
	if opts.Connection == (network.ConnectionConfig{}) {
		opts.Connection = network.DefaultConnectionConfig()
	}

	s := &GameServer{
		addr:           opts.HTTPAddress,
		roomManager:    rooms,
		sessionManager: sessions,
		monitor:        m,
		connCfg:        opts.Connection,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(opts.AllowedOrigins),
		},
	}

	s.httpServer = &http.Server{
		Addr:              opts.HTTPAddress,
		Handler:           s.Handler(opts.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler builds the router: room creation and lookup, the websocket
// endpoint and a health check.
func (s *GameServer) Handler(allowedOrigins []string) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/rooms", s.handleCreateRoom).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{code}", s.handleGetRoom).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: allowedOrigins,
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}

func (s *GameServer) Start() error {
	logger.Log.Infof("Game server listening on %s", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, closes every open connection and waits
// for their handlers to leave their rooms.
func (s *GameServer) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.sessionManager.CloseAll()

	done := make(chan struct{})
	go func() {
		s.connections.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

type createRoomRequest struct {
	UserID string `json:"userId"`
}

type roomResponse struct {
	Code      string         `json:"code"`
	CreatedAt time.Time      `json:"createdAt"`
	ExpiresAt time.Time      `json:"expiresAt"`
	Room      *room.Snapshot `json:"room,omitempty"`
}

func newRoomResponse(meta *models.RoomMeta, snap *room.Snapshot) roomResponse {
	return roomResponse{
		Code:      meta.Code,
		CreatedAt: meta.CreatedAt,
		ExpiresAt: meta.ExpiresAt,
		Room:      snap,
	}
}

func (s *GameServer) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	meta, err := s.roomManager.CreateRoom(r.Context(), req.UserID)
	if err != nil {
		logger.Log.Errorf("Failed to create room: %v", err)
		writeError(w, http.StatusInternalServerError, "could not create room")
		return
	}

	writeJSON(w, http.StatusCreated, newRoomResponse(meta, nil))
}

func (s *GameServer) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	meta, err := s.roomManager.Record(r.Context(), code)
	if errors.Is(err, room.ErrRoomNotFound) {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}
	if err != nil {
		logger.Log.Errorf("Failed to look up room %s: %v", code, err)
		writeError(w, http.StatusInternalServerError, "could not look up room")
		return
	}

	var snap *room.Snapshot
	if live, ok := s.roomManager.GetRoom(meta.Code); ok {
		snap, _ = live.Snapshot()
	}
	writeJSON(w, http.StatusOK, newRoomResponse(meta, snap))
}

func (s *GameServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"rooms":       s.roomManager.Count(),
		"connections": s.sessionManager.Count(),
	})
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	code := room.NormalizeCode(query.Get("room"))
	userID := query.Get("userId")
	username := query.Get("username")
	if code == "" || userID == "" {
		writeError(w, http.StatusBadRequest, "room and userId are required")
		return
	}
	if username == "" {
		username = userID
	}

	target, err := s.roomManager.Resolve(r.Context(), code)
	if errors.Is(err, room.ErrRoomNotFound) {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}
	if err != nil {
		logger.Log.Errorf("Failed to resolve room %s: %v", code, err)
		writeError(w, http.StatusInternalServerError, "could not resolve room")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}

	s.connections.Add(1)
	go func() {
		defer s.connections.Done()
		s.handleConnection(conn, target.ID, userID, username)
	}()
}

func (s *GameServer) handleConnection(conn *websocket.Conn, code, userID, username string) {
	wsConn := network.NewWSConnection(conn, s.connCfg)
	sess := session.NewSession(uuid.New().String(), wsConn, userID, username, code)
	s.sessionManager.Add(sess)
	s.monitor.IncOnlinePlayers()

	logger.Log.Infof("New connection from %s, session ID: %s, user %s, room %s", wsConn.RemoteAddr(), sess.GetID(), userID, code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	joined, err := s.roomManager.Join(ctx, code, sess)
	cancel()

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		if joined != nil {
			if err := joined.Leave(sess); err != nil && !errors.Is(err, room.ErrRoomClosed) {
				logger.Log.Warnf("Leave room %s: %v", code, err)
			}
			s.roomManager.ReleaseIfIdle(code)
		}
		s.sessionManager.Remove(sess.GetID())
		s.monitor.DecOnlinePlayers()
		wsConn.Close()
	}()

	if err != nil {
		logger.Log.Warnf("Session %s could not join room %s: %v", sess.GetID(), code, err)
		return
	}

	for {
		frame, err := wsConn.ReadMessage()
		if err != nil {
			return
		}
		s.monitor.IncMessagesReceived()

		start := time.Now()
		if err := joined.HandleMessage(sess, frame); err != nil {
			logger.Log.Debugf("Room %s dropped frame from %s: %v", code, userID, err)
			if errors.Is(err, room.ErrRoomClosed) {
				return
			}
		}
		s.monitor.ObserveMessageLatency(time.Since(start))
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
