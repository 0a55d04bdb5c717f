package room

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/wfunc/typerace/cache"
	"github.com/wfunc/typerace/network"
	"github.com/wfunc/typerace/session"
)

func newTestManager(t *testing.T) (*Manager, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	manager := NewRoomManager(cache.NewMemoryRoomCache(clock), ManagerConfig{
		Room: Options{Clock: clock, Sink: NewMockSink()},
	})
	t.Cleanup(manager.CloseAll)
	return manager, clock
}

func TestRoomManager_CreateAndResolve(t *testing.T) {
	manager, clock := newTestManager(t)
	ctx := context.Background()

	meta, err := manager.CreateRoom(ctx, "u1")
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if !ValidCode(meta.Code) {
		t.Errorf("invalid code %q", meta.Code)
	}
	if !meta.ExpiresAt.Equal(clock.Now().Add(2 * time.Hour)) {
		t.Errorf("Expected a 2h record, expires at %v", meta.ExpiresAt)
	}
	if manager.Count() != 0 {
		t.Error("creating a record should not start a room")
	}

	room, err := manager.Resolve(ctx, meta.Code)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	again, err := manager.Resolve(ctx, strings.ToLower(meta.Code))
	if err != nil || again != room {
		t.Errorf("Resolve should return the same live room, got %v, %v", again, err)
	}

	snap, err := room.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if snap.Phase != "waiting" || len(snap.Players) != 0 {
		t.Errorf("new room should be an empty lobby: %+v", snap)
	}
}

func TestRoomManager_ResolveUnknown(t *testing.T) {
	manager, _ := newTestManager(t)

	for _, code := range []string{"ZZZZZZ", "bad", ""} {
		if _, err := manager.Resolve(context.Background(), code); !errors.Is(err, ErrRoomNotFound) {
			t.Errorf("Resolve(%q) = %v, want ErrRoomNotFound", code, err)
		}
	}
}

func TestRoomManager_ExpiredRecord(t *testing.T) {
	manager, clock := newTestManager(t)
	ctx := context.Background()

	meta, _ := manager.CreateRoom(ctx, "u1")
	s := session.NewSession("s1", NewMockConnection(), "u1", "Una", meta.Code)
	room, err := manager.Join(ctx, meta.Code, s)
	if err != nil {
		t.Fatal(err)
	}

	clock.Advance(2 * time.Hour)
	if _, err := manager.Resolve(ctx, meta.Code); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("expired code should not resolve, got %v", err)
	}

	// live sessions are not kicked
	snap, err := room.Snapshot()
	if err != nil || len(snap.Players) != 1 {
		t.Errorf("existing room should keep running: %+v, %v", snap, err)
	}
}

func TestRoomManager_CreateSkipsCodeOfLiveRoom(t *testing.T) {
	manager, clock := newTestManager(t)
	ctx := context.Background()

	codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	manager.generateCode = func() (string, error) {
		code := codes[0]
		if len(codes) > 1 {
			codes = codes[1:]
		}
		return code, nil
	}

	meta, err := manager.CreateRoom(ctx, "u1")
	if err != nil || meta.Code != "AAAAAA" {
		t.Fatalf("Expected AAAAAA, got %+v, %v", meta, err)
	}
	s := session.NewSession("s1", NewMockConnection(), "u1", "Una", meta.Code)
	old, err := manager.Join(ctx, meta.Code, s)
	if err != nil {
		t.Fatal(err)
	}

	// record gone, room still running
	clock.Advance(2 * time.Hour)

	next, err := manager.CreateRoom(ctx, "u2")
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if next.Code != "BBBBBB" {
		t.Fatalf("code of a running room must not be reissued, got %s", next.Code)
	}
	if room, ok := manager.GetRoom("AAAAAA"); !ok || room != old {
		t.Error("the running room should be left alone")
	}
}

func TestRoomManager_JoinReplacesClosedRoom(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	meta, _ := manager.CreateRoom(ctx, "u1")
	stale, _ := manager.Resolve(ctx, meta.Code)
	stale.Close()

	conn := NewMockConnection()
	room, err := manager.Join(ctx, meta.Code, session.NewSession("s1", conn, "u1", "Una", meta.Code))
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if room == stale {
		t.Fatal("Join should have started a fresh room")
	}
	conn.waitFor(t, network.MsgTypeJoined)
}

func TestRoomManager_ReleaseAndSweep(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	meta, _ := manager.CreateRoom(ctx, "u1")
	s := session.NewSession("s1", NewMockConnection(), "u1", "Una", meta.Code)
	room, _ := manager.Join(ctx, meta.Code, s)

	if manager.ReleaseIfIdle(meta.Code) {
		t.Fatal("occupied room must not be released")
	}
	room.Leave(s)
	if !manager.ReleaseIfIdle(meta.Code) {
		t.Fatal("empty lobby should be released")
	}
	if _, ok := manager.GetRoom(meta.Code); ok {
		t.Error("released room should be forgotten")
	}

	// the record is still valid, so the code comes back as a new room
	other, _ := manager.CreateRoom(ctx, "u2")
	manager.Resolve(ctx, meta.Code)
	manager.Resolve(ctx, other.Code)
	if n := manager.Sweep(); n != 2 {
		t.Errorf("Expected 2 rooms swept, got %d", n)
	}
	if manager.Count() != 0 {
		t.Errorf("Expected no live rooms, got %d", manager.Count())
	}
}

func TestRoomManager_RunSweepsOnInterval(t *testing.T) {
	manager, clock := newTestManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	meta, _ := manager.CreateRoom(ctx, "u1")
	manager.Resolve(ctx, meta.Code)

	done := make(chan struct{})
	go func() {
		manager.Run(ctx, time.Minute)
		close(done)
	}()

	advance(t, clock, time.Minute)
	deadline := time.Now().Add(waitTimeout)
	for manager.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("idle room was not swept")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	<-done
}
