package engine

import (
	"time"

	"github.com/zeusync/robosim/internal/core/action"
	"github.com/zeusync/robosim/internal/core/body"
)

// Observer is notified synchronously about every performed action and every tick. It must
// not call back into the engine.
type Observer interface {
	OnAction(kind action.Kind, elapsed time.Duration, err error)
	OnTick(s Snapshot)
}

// ObserverFuncs adapts plain functions to Observer; nil fields are skipped.
type ObserverFuncs struct {
	Action func(kind action.Kind, elapsed time.Duration, err error)
	Tick   func(s Snapshot)
}

func (o ObserverFuncs) OnAction(kind action.Kind, elapsed time.Duration, err error) {
	if o.Action != nil {
		o.Action(kind, elapsed, err)
	}
}

func (o ObserverFuncs) OnTick(s Snapshot) {
	if o.Tick != nil {
		o.Tick(s)
	}
}

// Event types published on the event bus.
const (
	EventBodyCreated = "body.created"
	EventBodyRemoved = "body.removed"
	EventLinkCreated = "link.created"
	EventLinkRemoved = "link.removed"
)

// BodyEvent is the payload of body events.
type BodyEvent struct {
	Body body.ID `json:"body"`
	Kind string  `json:"kind"`
}

// LinkEvent is the payload of link events; it describes the source-side half.
type LinkEvent struct {
	Link        body.LinkID `json:"link"`
	Source      body.ID     `json:"source"`
	Destination body.ID     `json:"destination"`
	Type        string      `json:"type"`
}

func linkEvent(l *body.Link) LinkEvent {
	return LinkEvent{
		Link:        l.ID(),
		Source:      l.Source().Owner().ID(),
		Destination: l.Destination().Owner().ID(),
		Type:        l.Type().String(),
	}
}
