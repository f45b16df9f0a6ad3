package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/robosim/internal/core/action"
	"github.com/zeusync/robosim/internal/core/engine"
	"github.com/zeusync/robosim/internal/core/events/bus"
	"github.com/zeusync/robosim/internal/core/geometry"
)

func newTestServer(t *testing.T, cfg Config) (*Server, string) {
	t.Helper()
	s, err := New(cfg, nil)
	require.NoError(t, err)
	hs := httptest.NewServer(s)
	t.Cleanup(func() {
		_ = s.Close()
		hs.Close()
	})
	return s, "ws" + strings.TrimPrefix(hs.URL, "http")
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func waitViewers(t *testing.T, room *Room, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return room.Viewers() == n }, 5*time.Second, 5*time.Millisecond)
}

func TestStreamsSnapshots(t *testing.T) {
	s, u := newTestServer(t, DefaultConfig())
	room := s.Room("episode-0")

	e, err := engine.New(engine.DefaultConfig(), engine.WithObserver(room))
	require.NoError(t, err)
	defer func() { _ = e.Close() }()
	_, err = e.Perform(action.CreateRigidBody{Poly: geometry.Rectangle(1, 1), Mass: 1, AnchorsDensity: -1}, action.NewAgent())
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(u+"/ws?room=episode-0", nil)
	require.NoError(t, err)
	defer conn.Close()
	waitViewers(t, room, 1)

	_, err = e.Run(3)
	require.NoError(t, err)
	for tick := uint64(1); tick <= 3; tick++ {
		f := readFrame(t, conn)
		assert.Equal(t, FrameSnapshot, f.Type)
		assert.Equal(t, "episode-0", f.Room)
		require.NotNil(t, f.Snapshot)
		assert.Equal(t, tick, f.Snapshot.Tick)
		assert.Len(t, f.Snapshot.Bodies, 1)
	}
	assert.Equal(t, uint64(3), room.Frames())
}

func TestLateViewerGetsLatestSnapshot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SnapshotEvery = 2
	s, u := newTestServer(t, cfg)
	room := s.Room("late")

	e, err := engine.New(engine.DefaultConfig(), engine.WithObserver(room))
	require.NoError(t, err)
	defer func() { _ = e.Close() }()
	_, err = e.Run(5)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(u+"/ws?room=late", nil)
	require.NoError(t, err)
	defer conn.Close()
	f := readFrame(t, conn)
	require.NotNil(t, f.Snapshot)
	assert.Equal(t, uint64(4), f.Snapshot.Tick)
}

func TestForwardsEvents(t *testing.T) {
	s, u := newTestServer(t, DefaultConfig())
	room := s.Room("events")
	b := bus.New()
	sub, err := room.Subscribe(b)
	require.NoError(t, err)
	defer func() { _ = sub.Cancel() }()

	conn, _, err := websocket.DefaultDialer.Dial(u+"/ws?room=events", nil)
	require.NoError(t, err)
	defer conn.Close()
	waitViewers(t, room, 1)

	e, err := engine.New(engine.DefaultConfig(), engine.WithEventBus(b))
	require.NoError(t, err)
	_, err = e.Perform(action.CreateVoxel{}, action.NewAgent())
	require.NoError(t, err)

	f := readFrame(t, conn)
	assert.Equal(t, FrameEvent, f.Type)
	require.NotNil(t, f.Event)
	assert.Equal(t, engine.EventBodyCreated, f.Event.Type)
	assert.Equal(t, e.ID(), f.Event.Source)
	data, ok := f.Event.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "voxel", data["kind"])
	require.NoError(t, e.Close())

	f = readFrame(t, conn)
	assert.Equal(t, engine.EventBodyRemoved, f.Event.Type)
}

func TestRejectsViewers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Token = "secret"
	cfg.MaxClients = 1
	s, u := newTestServer(t, cfg)
	room := s.Room("r")

	_, resp, err := websocket.DefaultDialer.Dial(u+"/ws?room=r", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(u+"/ws?room=missing&token=secret", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	header := http.Header{"Authorization": []string{"Bearer secret"}}
	conn, _, err := websocket.DefaultDialer.Dial(u+"/ws?room=r", header)
	require.NoError(t, err)
	defer conn.Close()
	waitViewers(t, room, 1)

	_, resp, err = websocket.DefaultDialer.Dial(u+"/ws?room=r&token=secret", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int64(1), s.GetStats().ClientCount)

	require.NoError(t, conn.Close())
	waitViewers(t, room, 0)
	require.Eventually(t, func() bool { return s.GetStats().ClientCount == 0 }, 5*time.Second, 5*time.Millisecond)
}

func TestListsRooms(t *testing.T) {
	s, u := newTestServer(t, DefaultConfig())
	s.Room("b")
	s.Room("a")
	assert.Equal(t, []string{"a", "b"}, s.Rooms())

	resp, err := http.Get("http" + strings.TrimPrefix(u, "ws") + "/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	var rooms []struct {
		ID      string `json:"id"`
		Viewers int    `json:"viewers"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rooms))
	require.Len(t, rooms, 2)
	assert.Equal(t, "a", rooms[0].ID)
}

func TestStartStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	s, err := New(cfg, nil)
	require.NoError(t, err)
	room := s.Room("live")

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrServerAlreadyRunning)
	assert.True(t, s.GetStats().Running)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+s.Addr()+"/ws?room=live", nil)
	require.NoError(t, err)
	defer conn.Close()
	waitViewers(t, room, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, 0, room.Viewers())
	assert.ErrorIs(t, s.Stop(ctx), ErrServerNotRunning)
	assert.ErrorIs(t, s.Start(ctx), ErrServerClosed)
	assert.NoError(t, s.Close())
}

func TestInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SnapshotEvery = 0
	_, err := New(cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
