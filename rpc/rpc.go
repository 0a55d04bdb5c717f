package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"time"

	"github.com/wfunc/typerace/logger"
	"github.com/wfunc/typerace/models"
	"github.com/wfunc/typerace/room"
	"github.com/wfunc/typerace/services"
)

const callTimeout = 5 * time.Second

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer listens on addr and registers every receiver under its type name.
func NewServer(addr string, receivers ...interface{}) (*Server, error) {
	server := rpc.NewServer()
	for _, r := range receivers {
		if err := server.Register(r); err != nil {
			return nil, err
		}
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      server,
	}, nil
}

func (s *Server) Addr() string {
	return s.address
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// RaceService is the struct that exposes RPC methods.
type RaceService struct {
	rooms *room.Manager
	stats *services.StatsService
}

func NewRaceService(rooms *room.Manager, stats *services.StatsService) *RaceService {
	return &RaceService{rooms: rooms, stats: stats}
}

// net/rpc signature: exported method, exported arguments, pointer reply,
// error return.
type GetRoomArgs struct {
	Code string
}

type GetRoomReply struct {
	Record *models.RoomMeta
	Room   *room.Snapshot
}

// GetRoom returns the stored record and, if the room is live here, its snapshot.
func (rs *RaceService) GetRoom(args *GetRoomArgs, reply *GetRoomReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	meta, err := rs.rooms.Record(ctx, args.Code)
	if err != nil {
		return err
	}
	reply.Record = meta

	if live, ok := rs.rooms.GetRoom(meta.Code); ok {
		snap, err := live.Snapshot()
		if err != nil && !errors.Is(err, room.ErrRoomClosed) {
			return err
		}
		reply.Room = snap
	}
	return nil
}

type GetUserStatsArgs struct {
	UserID string
}

type GetUserStatsReply struct {
	Stats *models.UserStats
}

func (rs *RaceService) GetUserStats(args *GetUserStatsArgs, reply *GetUserStatsReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	stats, err := rs.stats.UserStats(ctx, args.UserID)
	if err != nil {
		return err
	}
	reply.Stats = stats
	return nil
}
