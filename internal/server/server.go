// Package server streams simulation snapshots and lifecycle events to websocket viewers.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zeusync/robosim/internal/core/observability/log"
)

// Server serves one websocket room per simulated engine.
type Server struct {
	config   Config
	logger   log.Log
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	mu       sync.Mutex
	rooms    map[string]*Room
	http     *http.Server
	listener net.Listener

	clientCount atomic.Int64
	running     atomic.Bool
	closed      atomic.Bool

	// connection handlers and their writers
	workerGroup sync.WaitGroup
}

// Stats contains server statistics
type Stats struct {
	ClientCount int64
	RoomCount   int
	Running     bool
}

// client is one connected viewer.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func New(config Config, logger log.Log) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNop()
	}
	s := &Server{
		config: config,
		logger: logger.Named("server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		mux:   http.NewServeMux(),
		rooms: make(map[string]*Room),
	}
	s.mux.HandleFunc("/ws", s.handleWebSocket)
	s.mux.HandleFunc("/rooms", s.handleRooms)
	return s, nil
}

// Handle registers an extra handler on the server mux, e.g. a metrics endpoint.
func (s *Server) Handle(pattern string, h http.Handler) { s.mux.Handle(pattern, h) }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

// Room returns the room named id, creating it on first use.
func (s *Server) Room(id string) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.rooms[id]; ok {
		return room
	}
	room := newRoom(id, s.config.SnapshotEvery, s.logger)
	s.rooms[id] = room
	s.logger.Debug("room created", log.String("room", id))
	return room
}

// Rooms returns the room names in lexical order.
func (s *Server) Rooms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Server) lookup(id string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	return room, ok
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(_ context.Context) error {
	if s.closed.Load() {
		return ErrServerClosed
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrServerAlreadyRunning
	}

	listener, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		s.running.Store(false)
		s.logger.Error("Failed to create listener", log.Error(err))
		return err
	}

	s.mu.Lock()
	s.listener = listener
	s.http = &http.Server{Handler: s, ReadHeaderTimeout: 5 * time.Second}
	srv := s.http
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Serve failed", log.Error(err))
		}
	}()

	s.logger.Info("Server listening", log.String("addr", listener.Addr().String()))
	return nil
}

// Addr returns the listening address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop stops accepting viewers, disconnects the connected ones and waits for their handlers.
// A stopped server cannot be started again.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return ErrServerNotRunning
	}
	s.logger.Info("Stopping server")

	s.mu.Lock()
	s.closed.Store(true)
	srv := s.http
	s.mu.Unlock()
	err := srv.Shutdown(ctx)

	s.disconnectAll()
	s.workerGroup.Wait()

	s.logger.Info("Server stopped")
	return err
}

// Close stops the server if running and disconnects every viewer. It is idempotent.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		return nil
	}
	s.closed.Store(true)
	s.mu.Unlock()

	if s.running.Load() {
		return s.Stop(context.Background())
	}
	s.disconnectAll()
	s.workerGroup.Wait()
	return nil
}

func (s *Server) disconnectAll() {
	s.mu.Lock()
	rooms := make([]*Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, room)
	}
	s.mu.Unlock()
	for _, room := range rooms {
		room.disconnectAll()
	}
}

func (s *Server) GetStats() Stats {
	s.mu.Lock()
	rooms := len(s.rooms)
	s.mu.Unlock()
	return Stats{
		ClientCount: s.clientCount.Load(),
		RoomCount:   rooms,
		Running:     s.running.Load(),
	}
}

func (s *Server) authorize(r *http.Request) error {
	if s.config.Token == "" {
		return nil
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if token != s.config.Token {
		return ErrUnauthorized
	}
	return nil
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	if err := s.authorize(r); err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	type roomInfo struct {
		ID      string `json:"id"`
		Viewers int    `json:"viewers"`
		Frames  uint64 `json:"frames"`
	}
	ids := s.Rooms()
	infos := make([]roomInfo, 0, len(ids))
	for _, id := range ids {
		if room, ok := s.lookup(id); ok {
			infos = append(infos, roomInfo{ID: id, Viewers: room.Viewers(), Frames: room.Frames()})
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(infos); err != nil {
		s.logger.Warn("Failed to write rooms", log.Error(err))
	}
}

// register reserves a viewer slot; it fails once the server is closed or full.
func (s *Server) register() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return ErrServerClosed
	}
	if s.clientCount.Load() >= int64(s.config.MaxClients) {
		return ErrMaxClientsReached
	}
	s.clientCount.Add(1)
	s.workerGroup.Add(2)
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if err := s.authorize(r); err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	room, ok := s.lookup(r.URL.Query().Get("room"))
	if !ok {
		http.Error(w, ErrRoomNotFound.Error(), http.StatusNotFound)
		return
	}
	if err := s.register(); err != nil {
		s.logger.Warn("Rejecting viewer", log.String("remote_addr", r.RemoteAddr), log.Error(err))
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.clientCount.Add(-1)
		s.workerGroup.Add(-2)
		s.logger.Warn("Upgrade failed", log.Error(err))
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, s.config.SendBuffer),
		done: make(chan struct{}),
	}
	clientLogger := s.logger.With(log.String("client_id", c.id), log.String("room", room.ID()))
	room.join(c)
	if s.closed.Load() {
		c.close()
	}
	clientLogger.Info("Viewer connected", log.Int64("total_clients", s.clientCount.Load()))

	go s.writeLoop(c, clientLogger)

	defer func() {
		room.leave(c)
		c.close()
		s.clientCount.Add(-1)
		s.workerGroup.Done()
		clientLogger.Info("Viewer disconnected", log.Int64("total_clients", s.clientCount.Load()))
	}()

	// viewers only read; incoming messages are drained to notice pongs and closes
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * s.config.PingInterval))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writeLoop(c *client, logger log.Log) {
	defer s.workerGroup.Done()
	ping := time.NewTicker(s.config.PingInterval)
	defer ping.Stop()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("Write failed", log.Error(err))
				c.close()
				return
			}
		case <-ping.C:
			deadline := time.Now().Add(s.config.WriteTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}
