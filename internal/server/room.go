package server

import (
	"bytes"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeusync/robosim/internal/core/action"
	"github.com/zeusync/robosim/internal/core/engine"
	"github.com/zeusync/robosim/internal/core/events/bus"
	"github.com/zeusync/robosim/internal/core/observability/log"
	"github.com/zeusync/robosim/pkg/generic"
)

// Frame types
const (
	FrameSnapshot = "snapshot"
	FrameEvent    = "event"
)

// Frame is the JSON message pushed to viewers.
type Frame struct {
	Type     string           `json:"type"`
	Room     string           `json:"room"`
	Snapshot *engine.Snapshot `json:"snapshot,omitempty"`
	Event    *EventFrame      `json:"event,omitempty"`
}

type EventFrame struct {
	Type   string    `json:"type"`
	Source string    `json:"source"`
	At     time.Time `json:"at"`
	Data   any       `json:"data,omitempty"`
}

var buffers = generic.NewPool(func() *bytes.Buffer { return new(bytes.Buffer) }, func(b *bytes.Buffer) { b.Reset() })

// Room streams the simulation of one engine to its viewers. It observes the engine and may
// be subscribed to the engine's event bus. A viewer joining late first receives the latest
// snapshot.
type Room struct {
	id     string
	every  uint64
	logger log.Log

	mu      sync.Mutex
	clients map[*client]struct{}
	last    []byte

	frames  atomic.Uint64
	dropped atomic.Uint64
}

var _ engine.Observer = (*Room)(nil)

func newRoom(id string, every int, logger log.Log) *Room {
	return &Room{
		id:      id,
		every:   uint64(every),
		logger:  logger.With(log.String("room", id)),
		clients: make(map[*client]struct{}),
	}
}

func (r *Room) ID() string { return r.id }

func (r *Room) OnAction(action.Kind, time.Duration, error) {}

func (r *Room) OnTick(s engine.Snapshot) {
	if s.Tick%r.every != 0 {
		return
	}
	r.broadcast(Frame{Type: FrameSnapshot, Room: r.id, Snapshot: &s}, true)
}

// Subscribe forwards every event published on b to the viewers.
func (r *Room) Subscribe(b bus.EventBus) (bus.Subscription, error) {
	return b.Subscribe(bus.Wildcard, func(ev bus.Event) error {
		r.broadcast(Frame{Type: FrameEvent, Room: r.id, Event: &EventFrame{
			Type:   ev.Type(),
			Source: ev.Source(),
			At:     ev.Timestamp(),
			Data:   ev.Data(),
		}}, false)
		return nil
	})
}

// Viewers returns the number of connected viewers.
func (r *Room) Viewers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Dropped counts frames skipped because a viewer's buffer was full.
func (r *Room) Dropped() uint64 { return r.dropped.Load() }

// Frames counts frames broadcast so far.
func (r *Room) Frames() uint64 { return r.frames.Load() }

func (r *Room) broadcast(f Frame, keep bool) {
	buf := buffers.Get()
	defer buffers.Put(buf)
	if err := json.NewEncoder(buf).Encode(f); err != nil {
		r.logger.Error("encode frame", log.String("type", f.Type), log.Error(err))
		return
	}
	msg := bytes.Clone(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))

	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames.Add(1)
	if keep {
		r.last = msg
	}
	for c := range r.clients {
		if !c.enqueue(msg) {
			r.dropped.Add(1)
		}
	}
}

func (r *Room) join(c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c] = struct{}{}
	if r.last != nil {
		c.enqueue(r.last)
	}
}

func (r *Room) leave(c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, c)
}

func (r *Room) disconnectAll() {
	r.mu.Lock()
	clients := make([]*client, 0, len(r.clients))
	for c := range r.clients {
		clients = append(clients, c)
	}
	r.mu.Unlock()
	for _, c := range clients {
		c.close()
	}
}
