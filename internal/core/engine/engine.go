// Package engine owns the simulated world: the backend solver, the live bodies, the solver of
// every primitive action and the tick loop driving embodied agents and actuators.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/robosim/internal/core/action"
	"github.com/zeusync/robosim/internal/core/body"
	"github.com/zeusync/robosim/internal/core/events/bus"
	"github.com/zeusync/robosim/internal/core/observability/log"
)

var ErrClosed = errors.New("engine is closed")

// Option customizes an Engine at construction.
type Option func(*Engine)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l log.Log) Option {
	return func(e *Engine) { e.logger = l }
}

// WithObserver registers an observer of actions and ticks.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// WithEventBus publishes body and link lifecycle events on b.
func WithEventBus(b bus.EventBus) Option {
	return func(e *Engine) { e.events = b }
}

type agentState struct {
	agent    action.EmbodiedAgent
	previous []action.Outcome
}

// Engine is single-threaded: none of its methods may be called concurrently. Perform may be
// re-entered from the solvers and self-described actions it runs.
type Engine struct {
	id        string
	cfg       Config
	world     *body.World
	bodies    []body.Body
	agents    []*agentState
	solvers   map[action.Kind]solver
	t         float64
	previousT float64
	ticks     uint64
	outcomes  []action.Outcome
	depth     int
	closed    bool

	logger    log.Log
	observers []Observer
	events    bus.EventBus
}

var _ action.Performer = (*Engine)(nil)

func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		id:      uuid.NewString(),
		cfg:     cfg,
		world:   body.NewWorld(cfg.Gravity),
		solvers: defaultSolvers(),
		logger:  log.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(log.String("engine", e.id))
	e.logger.Debug("engine created",
		log.Float64("time_step", cfg.TimeStep),
		log.Int("solvers", len(e.solvers)),
	)
	return e, nil
}

// ID identifies the engine in logs and events.
func (e *Engine) ID() string     { return e.id }
func (e *Engine) Config() Config { return e.cfg }

// T is the logical clock: the number of steps performed times the step size.
func (e *Engine) T() float64 { return e.t }

// Bodies returns the live bodies in creation order.
func (e *Engine) Bodies() []body.Body {
	return append([]body.Body(nil), e.bodies...)
}

// Links returns every live link half ordered by id.
func (e *Engine) Links() []*body.Link { return e.world.Links() }

// LastOutcomes returns the outcomes of the actions performed for agents at the last tick.
func (e *Engine) LastOutcomes() []action.Outcome {
	return append([]action.Outcome(nil), e.outcomes...)
}

// Agents returns the registered embodied agents in registration order.
func (e *Engine) Agents() []action.EmbodiedAgent {
	agents := make([]action.EmbodiedAgent, len(e.agents))
	for i, st := range e.agents {
		agents[i] = st.agent
	}
	return agents
}

// IsAlive reports whether b belongs to the live bodies.
func (e *Engine) IsAlive(b body.Body) bool { return e.indexOf(b) >= 0 }

func (e *Engine) indexOf(b body.Body) int {
	if b == nil {
		return -1
	}
	for i, x := range e.bodies {
		if x == b {
			return i
		}
	}
	return -1
}

// Perform runs a on behalf of agent: registered solvers first, then the action's own logic
// when it is self-described.
func (e *Engine) Perform(a action.Action, agent action.Agent) (action.Outcome, error) {
	outcome := action.Outcome{Action: a, Agent: agent}
	if a == nil {
		return outcome, &action.UnsupportedActionError{Reason: "nil action"}
	}
	if e.closed {
		return outcome, fmt.Errorf("perform %s: %w", a.Kind(), ErrClosed)
	}

	e.depth++
	start := time.Now()
	var err error
	if s, ok := e.solvers[a.Kind()]; ok {
		outcome.Result, err = s(e, a, agent)
	} else if sd, ok := a.(action.SelfDescribed); ok {
		outcome.Result, err = sd.Perform(e, agent)
	} else {
		err = &action.UnsupportedActionError{Action: a, Reason: fmt.Sprintf("no solver for %T", a)}
	}
	elapsed := time.Since(start)
	e.depth--

	for _, o := range e.observers {
		o.OnAction(a.Kind(), elapsed, err)
	}
	if err != nil {
		e.logger.Warn("action failed",
			log.Stringer("action", a.Kind()),
			log.Int("depth", e.depth),
			log.Error(err),
		)
	}
	return outcome, err
}

// Tick runs one step of the simulation: every agent acts on the outcomes of its previous
// actions, every actuable body is actuated, the backend advances one fixed step and the clock
// moves forward.
func (e *Engine) Tick() (Snapshot, error) {
	if e.closed {
		return Snapshot{}, ErrClosed
	}
	var outcomes []action.Outcome
	// agents added while acting start at the next tick
	agents := e.agents
	for _, st := range agents {
		actions := st.agent.Act(e.t, st.previous)
		current := make([]action.Outcome, 0, len(actions))
		for _, a := range actions {
			o, err := e.Perform(a, st.agent)
			if err != nil {
				return Snapshot{}, fmt.Errorf("agent %s at t=%.4f: %w", st.agent.ID(), e.t, err)
			}
			current = append(current, o)
		}
		st.previous = current
		outcomes = append(outcomes, current...)
	}
	e.outcomes = outcomes

	for _, b := range e.bodies {
		if a, ok := b.(body.Actuable); ok {
			a.Actuate(e.t, e.previousT)
		}
	}
	e.world.Step(e.cfg.TimeStep, e.cfg.VelocityIterations, e.cfg.PositionIterations)
	e.previousT = e.t
	e.ticks++
	e.t = float64(e.ticks) * e.cfg.TimeStep

	snap := e.Snapshot()
	for _, o := range e.observers {
		o.OnTick(snap)
	}
	return snap, nil
}

// Run ticks n times, stopping at the first error.
func (e *Engine) Run(n int) (Snapshot, error) {
	var (
		snap Snapshot
		err  error
	)
	for i := 0; i < n; i++ {
		if snap, err = e.Tick(); err != nil {
			return snap, err
		}
	}
	return snap, nil
}

// Close removes every body, newest first. The engine cannot be used afterwards.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	var errs []error
	for i := len(e.bodies) - 1; i >= 0; i-- {
		if err := e.remove(e.bodies[i]); err != nil {
			errs = append(errs, err)
		}
	}
	e.agents = nil
	e.closed = true
	e.logger.Info("engine closed", log.Float64("t", e.t), log.Uint64("ticks", e.ticks))
	return errors.Join(errs...)
}

func (e *Engine) add(b body.Body) {
	e.bodies = append(e.bodies, b)
	e.logger.Debug("body created", log.Uint64("body", uint64(b.ID())), log.String("kind", body.KindOf(b)))
	e.publish(EventBodyCreated, BodyEvent{Body: b.ID(), Kind: body.KindOf(b)})
}

// remove tears b down and drops it from the live bodies. Links go first, then backend joints,
// then backend bodies.
func (e *Engine) remove(b body.Body) error {
	i := e.indexOf(b)
	if i < 0 {
		return fmt.Errorf("body %d is not alive", b.ID())
	}
	mb, ok := b.(body.MultipartBody)
	if !ok {
		return fmt.Errorf("body %d of kind %s exposes no backend parts", b.ID(), body.KindOf(b))
	}
	removed, err := e.world.Remove(mb)
	for _, l := range removed {
		e.publish(EventLinkRemoved, linkEvent(l))
	}
	if err != nil {
		return err
	}
	e.bodies = append(e.bodies[:i], e.bodies[i+1:]...)
	e.logger.Debug("body removed", log.Uint64("body", uint64(b.ID())), log.Int("links", len(removed)))
	e.publish(EventBodyRemoved, BodyEvent{Body: b.ID(), Kind: body.KindOf(b)})
	return nil
}

func (e *Engine) publish(typ string, data any) {
	if e.events == nil {
		return
	}
	if err := e.events.Publish(bus.NewEvent(typ, e.id, data, 0, nil)); err != nil {
		e.logger.Warn("event handler failed", log.String("event", typ), log.Error(err))
	}
}
