package engine

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/robosim/internal/core/body"
	"github.com/zeusync/robosim/internal/core/geometry"
)

// BodyState is a read-only copy of the observable state of one body.
type BodyState struct {
	ID       body.ID        `json:"id"`
	Kind     string         `json:"kind"`
	Poly     geometry.Poly  `json:"poly"`
	Mass     float64        `json:"mass"`
	Angle    float64        `json:"angle"`
	Velocity geometry.Point `json:"velocity"`
}

// LinkState describes one link half.
type LinkState struct {
	ID          body.LinkID `json:"id"`
	Source      body.ID     `json:"source"`
	Destination body.ID     `json:"destination"`
	Type        string      `json:"type"`
}

// Snapshot is a read-only copy of the world at a given time.
type Snapshot struct {
	T      float64     `json:"t"`
	Tick   uint64      `json:"tick"`
	Bodies []BodyState `json:"bodies"`
	Links  []LinkState `json:"links"`
}

// Snapshot copies the current state of every live body and link.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		T:      e.t,
		Tick:   e.ticks,
		Bodies: make([]BodyState, len(e.bodies)),
	}
	for i, b := range e.bodies {
		s.Bodies[i] = BodyState{
			ID:       b.ID(),
			Kind:     body.KindOf(b),
			Poly:     b.Poly(),
			Mass:     b.Mass(),
			Angle:    b.Angle(),
			Velocity: b.CenterLinearVelocity(),
		}
	}
	links := e.world.Links()
	s.Links = make([]LinkState, len(links))
	for i, l := range links {
		ev := linkEvent(l)
		s.Links[i] = LinkState{ID: ev.Link, Source: ev.Source, Destination: ev.Destination, Type: ev.Type}
	}
	return s
}

// Hash digests the numeric trace of the snapshot. Two runs performing the same actions from
// the same initial state produce the same sequence of hashes.
func (s Snapshot) Hash() uint64 {
	h := xxhash.New()
	var buf [8]byte
	putU := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}
	putF := func(v float64) { putU(math.Float64bits(v)) }

	putU(s.Tick)
	putF(s.T)
	for _, b := range s.Bodies {
		putU(uint64(b.ID))
		_, _ = h.WriteString(b.Kind)
		putF(b.Mass)
		putF(b.Angle)
		putF(b.Velocity.X)
		putF(b.Velocity.Y)
		for _, v := range b.Poly.Vertices {
			putF(v.X)
			putF(v.Y)
		}
	}
	for _, l := range s.Links {
		putU(uint64(l.ID))
		putU(uint64(l.Source))
		putU(uint64(l.Destination))
		_, _ = h.WriteString(l.Type)
	}
	return h.Sum64()
}

// Body returns the state of the body with the given id.
func (s Snapshot) Body(id body.ID) (BodyState, bool) {
	for _, b := range s.Bodies {
		if b.ID == id {
			return b, true
		}
	}
	return BodyState{}, false
}
