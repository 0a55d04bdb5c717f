package rpc

import (
	"context"
	"net/rpc"
	"testing"

	"github.com/jonboulle/clockwork"

	"github.com/wfunc/typerace/cache"
	"github.com/wfunc/typerace/models"
	"github.com/wfunc/typerace/persistence"
	"github.com/wfunc/typerace/room"
	"github.com/wfunc/typerace/services"
)

func startServer(t *testing.T) (*rpc.Client, *room.Manager, *persistence.MemoryDatabase) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	manager := room.NewRoomManager(cache.NewMemoryRoomCache(clock), room.ManagerConfig{
		Room: room.Options{Clock: clock},
	})
	t.Cleanup(manager.CloseAll)

	db := persistence.NewMemoryDatabase()
	server, err := NewServer("127.0.0.1:0", NewRaceService(manager, services.NewStatsService(db)))
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	go server.Start()
	t.Cleanup(server.Stop)

	client, err := rpc.Dial("tcp", server.Addr())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, manager, db
}

func TestRaceService_GetRoom(t *testing.T) {
	client, manager, _ := startServer(t)
	ctx := context.Background()

	meta, _ := manager.CreateRoom(ctx, "u1")

	var reply GetRoomReply
	if err := client.Call("RaceService.GetRoom", &GetRoomArgs{Code: meta.Code}, &reply); err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if reply.Record == nil || reply.Record.Code != meta.Code || reply.Room != nil {
		t.Errorf("a room nobody joined should have a record only: %+v", reply)
	}

	manager.Resolve(ctx, meta.Code)
	reply = GetRoomReply{}
	if err := client.Call("RaceService.GetRoom", &GetRoomArgs{Code: meta.Code}, &reply); err != nil {
		t.Fatal(err)
	}
	if reply.Room == nil || reply.Room.Phase != "waiting" {
		t.Errorf("Expected a live waiting room, got %+v", reply.Room)
	}

	err := client.Call("RaceService.GetRoom", &GetRoomArgs{Code: "ZZZZZZ"}, &GetRoomReply{})
	if err == nil || err.Error() != room.ErrRoomNotFound.Error() {
		t.Errorf("Expected room not found, got %v", err)
	}
}

func TestRaceService_GetUserStats(t *testing.T) {
	client, _, db := startServer(t)

	db.RecordSession(context.Background(), &models.SessionRecord{
		RoomCode:       "ABC234",
		ParticipantIDs: []string{"u1"},
		WPM:            map[string]float64{"u1": 72},
		Accuracy:       map[string]float64{"u1": 97},
	})

	var reply GetUserStatsReply
	if err := client.Call("RaceService.GetUserStats", &GetUserStatsArgs{UserID: "u1"}, &reply); err != nil {
		t.Fatalf("GetUserStats failed: %v", err)
	}
	if reply.Stats.Games != 1 || reply.Stats.BestWPM != 72 {
		t.Errorf("unexpected stats %+v", reply.Stats)
	}
}
