package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DroopyTersen/mayi-sub006/engine"
	"github.com/DroopyTersen/mayi-sub006/internal/bot"
	"github.com/DroopyTersen/mayi-sub006/internal/game"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	srv   *httptest.Server
	rooms *Registry
	auth  *TokenAuth
}

func testLog() *logrus.Entry {
	l, _ := test.NewNullLogger()
	return logrus.NewEntry(l)
}

func newFixture(t *testing.T, stores StoreProvider) *fixture {
	t.Helper()
	log := testLog()
	rooms := NewRegistry(RegistryDeps{
		Stores:      stores,
		Agents:      bot.Resolver(log),
		Coordinator: game.CoordinatorConfig{MaxChainedTurns: 8, MaxSteps: 40, FallbackEnabled: true},
		Rules:       engine.DefaultHouseRules(),
		Log:         log,
	})
	auth := NewTokenAuth("test-secret", time.Hour)
	srv := httptest.NewServer(New(rooms, auth, log).Routes())
	t.Cleanup(func() {
		srv.Close()
		rooms.Close()
	})
	return &fixture{srv: srv, rooms: rooms, auth: auth}
}

var humans = []game.Seat{{ExternalID: "alice", Name: "Alice"}, {ExternalID: "bob", Name: "Bob"}, {ExternalID: "carol", Name: "Carol"}}

func (f *fixture) createRoom(t *testing.T, seats []game.Seat) createRoomResponse {
	t.Helper()
	body, _ := json.Marshal(createRoomRequest{Players: seats, Seed: 7})
	resp, err := http.Post(f.srv.URL+"/rooms", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out createRoomResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (f *fixture) getRoom(t *testing.T, roomID, token string) (*http.Response, game.View) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.srv.URL+"/rooms/"+roomID, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var v game.View
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp, v
}

func TestHealth(t *testing.T) {
	f := newFixture(t, NewMemoryRooms())
	resp, err := http.Get(f.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestCreateRoomIssuesTokens(t *testing.T) {
	f := newFixture(t, NewMemoryRooms())
	created := f.createRoom(t, humans)
	require.Len(t, created.Tokens, 3)

	for i, seat := range humans {
		sub, err := f.auth.Verify(created.Tokens[seat.ExternalID], created.RoomID)
		require.NoError(t, err)
		assert.Equal(t, seat.ExternalID, sub)

		resp, view := f.getRoom(t, created.RoomID.String(), created.Tokens[seat.ExternalID])
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int64(1), view.Revision)
		assert.Len(t, view.Seats, 3)
		assert.Equal(t, humans[i].Name, view.Seats[i].Name)
		for _, p := range view.Game.Players {
			if p.ID == view.You {
				assert.Len(t, p.Hand, p.HandSize)
			} else {
				assert.Empty(t, p.Hand, "other hands hidden")
			}
		}
	}
}

func TestCreateRoomRejectsBadInput(t *testing.T) {
	f := newFixture(t, NewMemoryRooms())
	cases := map[string]string{
		"malformed":   `{"players":`,
		"too few":     `{"players":[{"externalId":"a"},{"externalId":"b"}]}`,
		"duplicate":   `{"players":[{"externalId":"a"},{"externalId":"a"},{"externalId":"b"}]}`,
		"empty seats": `{"players":[]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp, err := http.Post(f.srv.URL+"/rooms", "application/json", strings.NewReader(body))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestGetRoomAuth(t *testing.T) {
	f := newFixture(t, NewMemoryRooms())
	created := f.createRoom(t, humans)
	other := f.createRoom(t, humans)
	roomID := created.RoomID.String()

	resp, _ := f.getRoom(t, roomID, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = f.getRoom(t, roomID, "garbage")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = f.getRoom(t, roomID, other.Tokens["alice"])
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = f.getRoom(t, "not-a-uuid", created.Tokens["alice"])
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	missing := uuid.New()
	tok, err := f.auth.Issue(missing, "alice")
	require.NoError(t, err)
	resp, _ = f.getRoom(t, missing.String(), tok)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Query-string tokens work for plain GETs too.
	r, err := http.Get(f.srv.URL + "/rooms/" + roomID + "?token=" + created.Tokens["bob"])
	require.NoError(t, err)
	r.Body.Close()
	assert.Equal(t, http.StatusOK, r.StatusCode)
}

func dial(t *testing.T, f *fixture, roomID uuid.UUID, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/" + roomID.String() + "?token=" + token
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) game.GameEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var evt game.GameEvent
	require.NoError(t, wsjson.Read(ctx, conn, &evt))
	return evt
}

func send(t *testing.T, conn *websocket.Conn, msg ClientMessage) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, msg))
}

func externalFor(v game.View, engineID string) string {
	for _, s := range v.Seats {
		if s.ID == engineID {
			return s.ExternalID
		}
	}
	return ""
}

func TestWebsocketCommandFlow(t *testing.T) {
	f := newFixture(t, NewMemoryRooms())
	created := f.createRoom(t, humans)
	_, first := f.getRoom(t, created.RoomID.String(), created.Tokens["alice"])
	actor := externalFor(first, first.Game.AwaitingID)
	require.NotEmpty(t, actor)
	var bystander string
	for _, s := range humans {
		if s.ExternalID != actor {
			bystander = s.ExternalID
			break
		}
	}

	actorConn := dial(t, f, created.RoomID, created.Tokens[actor])
	byConn := dial(t, f, created.RoomID, created.Tokens[bystander])
	for _, c := range []*websocket.Conn{actorConn, byConn} {
		evt := readEvent(t, c)
		require.Equal(t, game.EventPrivateSyncState, evt.Type)
		require.Equal(t, int64(1), evt.State.Revision)
	}

	send(t, actorConn, ClientMessage{Type: MsgCommand, RequestID: "r1", Command: engine.Command{Action: engine.ActionDrawStock}})
	for _, c := range []*websocket.Conn{actorConn, byConn} {
		evt := readEvent(t, c)
		require.Equal(t, game.EventPrivateSyncState, evt.Type)
		assert.Equal(t, int64(2), evt.State.Revision)
		assert.Equal(t, engine.TurnAwaitingAction, evt.State.Game.TurnPhase)
	}

	// Out of turn: persisted as the bystander's LastError, reported privately.
	send(t, byConn, ClientMessage{Type: MsgCommand, RequestID: "r2", Command: engine.Command{Action: engine.ActionDrawStock}})
	evt := readEvent(t, actorConn)
	require.Equal(t, game.EventPrivateSyncState, evt.Type)
	assert.Nil(t, evt.State.Game.LastError)

	evt = readEvent(t, byConn)
	require.Equal(t, game.EventPrivateSyncState, evt.Type)
	require.NotNil(t, evt.State.Game.LastError)
	evt = readEvent(t, byConn)
	require.Equal(t, game.EventPrivateCommandRejected, evt.Type)
	assert.Equal(t, "r2", evt.Payload["requestId"])

	send(t, byConn, ClientMessage{Type: MsgRequestSync})
	evt = readEvent(t, byConn)
	require.Equal(t, game.EventPrivateSyncState, evt.Type)
	assert.Equal(t, int64(3), evt.State.Revision)

	send(t, byConn, ClientMessage{Type: "dance"})
	evt = readEvent(t, byConn)
	assert.Equal(t, game.EventError, evt.Type)
}

func TestWebsocketRequiresToken(t *testing.T) {
	f := newFixture(t, NewMemoryRooms())
	created := f.createRoom(t, humans)
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/" + created.RoomID.String()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, resp, err := websocket.Dial(ctx, url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAISeatsPlayUntilHuman(t *testing.T) {
	f := newFixture(t, NewMemoryRooms())
	created := f.createRoom(t, []game.Seat{
		{ExternalID: "alice", Name: "Alice"},
		{ExternalID: "bot-1", Name: "Bot 1", IsAI: true, AIModelID: bot.ModelHeuristic},
		{ExternalID: "bot-2", Name: "Bot 2", IsAI: true, AIModelID: bot.ModelHeuristic},
	})
	assert.Len(t, created.Tokens, 1, "AI seats get no token")

	rm, err := f.rooms.get(context.Background(), created.RoomID)
	require.NoError(t, err)
	rm.session.Wait()

	_, view := f.getRoom(t, created.RoomID.String(), created.Tokens["alice"])
	assert.Greater(t, view.Revision, int64(1))
	assert.Equal(t, "alice", externalFor(view, view.Game.AwaitingID))
}

func TestRegistryReopensStoredRoom(t *testing.T) {
	stores := NewMemoryRooms()
	first := newFixture(t, stores)
	created := first.createRoom(t, humans)

	second := NewRegistry(RegistryDeps{Stores: stores, Rules: engine.DefaultHouseRules(), Log: testLog()})
	t.Cleanup(second.Close)
	rm, err := second.get(context.Background(), created.RoomID)
	require.NoError(t, err)
	view, err := rm.session.View(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "p2", view.You)

	again, err := second.get(context.Background(), created.RoomID)
	require.NoError(t, err)
	assert.Same(t, rm, again)

	_, err = second.get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrRoomNotFound)
}
