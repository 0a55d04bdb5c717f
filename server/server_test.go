package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wfunc/typerace/cache"
	"github.com/wfunc/typerace/network"
	"github.com/wfunc/typerace/persistence"
	"github.com/wfunc/typerace/room"
	"github.com/wfunc/typerace/services"
	"github.com/wfunc/typerace/session"
	"github.com/wfunc/typerace/state"
)

type testServer struct {
	*httptest.Server
	game  *GameServer
	rooms *room.Manager
	db    *persistence.MemoryDatabase
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := persistence.NewMemoryDatabase()
	rooms := room.NewRoomManager(cache.NewMemoryRoomCache(nil), room.ManagerConfig{
		Room: room.Options{
			Settings: state.Settings{
				CountdownFrom:     3,
				CountdownInterval: 10 * time.Millisecond,
				ResetDelay:        20 * time.Millisecond,
			},
			Sink: services.NewResultService(db, nil, nil),
		},
	})
	game := NewGameServer(Options{AllowedOrigins: []string{"*"}}, rooms, session.NewManager(), nil)

	ts := &testServer{
		Server: httptest.NewServer(game.Handler([]string{"*"})),
		game:   game,
		rooms:  rooms,
		db:     db,
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		game.Shutdown(ctx)
		ts.Close()
		rooms.CloseAll()
	})
	return ts
}

func (ts *testServer) createRoom(t *testing.T, userID string) string {
	t.Helper()
	body, _ := json.Marshal(createRoomRequest{UserID: userID})
	resp, err := http.Post(ts.URL+"/rooms", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /rooms failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}

	var created roomResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if !room.ValidCode(created.Code) {
		t.Fatalf("invalid code %q", created.Code)
	}
	return created.Code
}

type testClient struct {
	conn *websocket.Conn
}

func (ts *testServer) dial(t *testing.T, code, userID, username string) *testClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?room=" + code + "&userId=" + userID + "&username=" + username
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s failed: %v", userID, err)
	}
	t.Cleanup(func() { conn.Close() })
	return &testClient{conn: conn}
}

func (c *testClient) send(t *testing.T, msgType string, payload interface{}) {
	t.Helper()
	frame, _ := network.Encode(msgType, payload)
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func (c *testClient) waitFor(t *testing.T, msgType string) *network.Message {
	t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", msgType, err)
		}
		msg, err := network.Decode(frame)
		if err != nil {
			t.Fatalf("undecodable frame %s", frame)
		}
		if msg.Type == msgType {
			return msg
		}
	}
}

func TestServer_RoomEndpoints(t *testing.T) {
	ts := newTestServer(t)
	code := ts.createRoom(t, "u1")

	resp, err := http.Get(ts.URL + "/rooms/" + strings.ToLower(code))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 for an existing room, got %d", resp.StatusCode)
	}

	resp, _ = http.Get(ts.URL + "/rooms/ZZZZZZ")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}

	resp, _ = http.Get(ts.URL + "/health")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected healthy server, got %d", resp.StatusCode)
	}
}

func TestServer_WebSocketRejections(t *testing.T) {
	ts := newTestServer(t)
	base := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(base+"?room=ABC234", nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing userId should be 400, got %v", resp)
	}

	_, resp, err = websocket.DefaultDialer.Dial(base+"?room=ZZZZZZ&userId=u1", nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown room should be 404, got %v", resp)
	}
}

func TestServer_RaceOverWebSocket(t *testing.T) {
	ts := newTestServer(t)
	code := ts.createRoom(t, "h")

	host := ts.dial(t, code, "h", "Host")
	var joined network.JoinedPayload
	host.waitFor(t, network.MsgTypeJoined).Payload(&joined)
	if !joined.IsHost || joined.Status != "waiting" {
		t.Fatalf("first joiner should be host in waiting: %+v", joined)
	}

	guest := ts.dial(t, code, "b", "Bea")
	guest.waitFor(t, network.MsgTypeJoined).Payload(&joined)
	if joined.IsHost || len(joined.Players) != 2 {
		t.Fatalf("unexpected joined for guest: %+v", joined)
	}

	host.send(t, network.MsgTypeStart, network.StartPayload{CodeSnippet: "fmt.Println()"})
	for _, want := range []int{3, 2, 1} {
		var cd network.CountdownPayload
		guest.waitFor(t, network.MsgTypeCountdown).Payload(&cd)
		if cd.Count != want {
			t.Fatalf("Expected countdown %d, got %d", want, cd.Count)
		}
	}
	guest.waitFor(t, network.MsgTypeGameStart)
	host.waitFor(t, network.MsgTypeGameStart)

	guest.send(t, network.MsgTypeFinish, network.FinishPayload{WPM: 90, Accuracy: 100, CharsTyped: 13})
	host.send(t, network.MsgTypeFinish, network.FinishPayload{WPM: 70, Accuracy: 97, CharsTyped: 13})

	var end network.GameEndPayload
	host.waitFor(t, network.MsgTypeGameEnd).Payload(&end)
	if len(end.Results) != 2 || end.Results[0].UserID != "b" {
		t.Fatalf("unexpected results %+v", end.Results)
	}
	host.waitFor(t, network.MsgTypeReset)

	deadline := time.Now().Add(2 * time.Second)
	for ts.db.Sessions() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("finished game was not recorded")
		}
		time.Sleep(5 * time.Millisecond)
	}

	stats, _ := services.NewStatsService(ts.db).UserStats(context.Background(), "b")
	if stats.BestWPM != 90 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestServer_DisconnectHandsOverHostAndReleasesRoom(t *testing.T) {
	ts := newTestServer(t)
	code := ts.createRoom(t, "h")

	host := ts.dial(t, code, "h", "Host")
	host.waitFor(t, network.MsgTypeJoined)
	guest := ts.dial(t, code, "b", "Bea")
	guest.waitFor(t, network.MsgTypeJoined)

	host.conn.Close()
	var left network.PlayersPayload
	guest.waitFor(t, network.MsgTypePlayerLeft).Payload(&left)
	if len(left.Players) != 1 || !left.Players[0].IsHost {
		t.Fatalf("guest should be host now: %+v", left.Players)
	}

	guest.conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for ts.rooms.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("empty room was not released")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// the record outlives the live room
	if _, err := ts.rooms.Record(context.Background(), code); err != nil {
		t.Errorf("record should still resolve: %v", err)
	}
}

var _ room.ScoreSink = (*services.ResultService)(nil)
