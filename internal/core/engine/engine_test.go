package engine

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/robosim/internal/core/action"
	"github.com/zeusync/robosim/internal/core/body"
	"github.com/zeusync/robosim/internal/core/events/bus"
	"github.com/zeusync/robosim/internal/core/geometry"
)

func weightlessConfig() Config {
	cfg := DefaultConfig()
	cfg.Gravity = geometry.Point{}
	return cfg
}

func newTestEngine(t *testing.T, cfg Config, opts ...Option) *Engine {
	t.Helper()
	e, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func mustPerform[R any](t *testing.T, e *Engine, a action.Action) R {
	t.Helper()
	o, err := e.Perform(a, action.NewAgent())
	require.NoError(t, err)
	r, ok := action.ResultAs[R](o)
	require.True(t, ok, "result of %s is %T", a.Kind(), o.Result)
	return r
}

func voxelAt(t *testing.T, e *Engine, x, y float64) *body.Voxel {
	t.Helper()
	return mustPerform[*body.Voxel](t, e, action.CreateAndTranslateVoxel{At: geometry.Point{X: x, Y: y}})
}

func TestTwoVoxelsAttachAndDetach(t *testing.T) {
	e := newTestEngine(t, weightlessConfig())
	a := voxelAt(t, e, 0, 0)
	b := voxelAt(t, e, 1, 0)

	links := mustPerform[[]*body.Link](t, e, action.AttachClosestAnchors{N: 2, Source: a, Target: b, Type: body.LinkRigid})
	require.Len(t, links, 2)
	pairs := map[*body.Anchor]*body.Anchor{}
	for _, l := range links {
		pairs[l.Source()] = l.Destination()
	}
	assert.Same(t, b.Anchor(body.NW), pairs[a.Anchor(body.NE)])
	assert.Same(t, b.Anchor(body.SW), pairs[a.Anchor(body.SE)])

	removed := mustPerform[[]*body.Link](t, e, action.DetachAllAnchorsFromAnchorable{Anchorable: a})
	assert.ElementsMatch(t, links, removed)
	for _, v := range []*body.Voxel{a, b} {
		require.Len(t, v.Anchors(), 4)
		for _, anchor := range v.Anchors() {
			require.NotNil(t, anchor)
			assert.Empty(t, anchor.Links())
		}
	}
	assert.Empty(t, e.Links())
}

func TestAttachClosestAnchorsNeverExceedsN(t *testing.T) {
	e := newTestEngine(t, weightlessConfig())
	a := voxelAt(t, e, 0, 0)
	b := voxelAt(t, e, 1, 0)

	for i := 0; i < 3; i++ {
		_, err := e.Perform(action.AttachClosestAnchors{N: 2, Source: a, Target: b, Type: body.LinkSoft}, action.NewAgent())
		require.NoError(t, err)
		assert.Len(t, body.LinksBetween(a, b), 2)
	}
	assert.Len(t, e.Links(), 4)
}

func TestCreateLinkIsSymmetric(t *testing.T) {
	events := bus.New()
	var received []string
	for _, typ := range []string{EventLinkCreated, EventLinkRemoved} {
		_, err := events.Subscribe(typ, func(ev bus.Event) error {
			received = append(received, ev.Type())
			return nil
		})
		require.NoError(t, err)
	}
	e := newTestEngine(t, weightlessConfig(), WithEventBus(events))
	a := voxelAt(t, e, 0, 0)
	b := voxelAt(t, e, 1, 0)

	l := mustPerform[*body.Link](t, e, action.CreateLink{Source: a.Anchor(body.NE), Destination: b.Anchor(body.NW), Type: body.LinkRigid})
	assert.True(t, a.Anchor(body.NE).IsLinkedTo(b))
	assert.True(t, b.Anchor(body.NW).IsLinkedTo(a))
	assert.Same(t, l, l.Reversed().Reversed())

	o, err := e.Perform(action.CreateLink{Source: a.Anchor(body.NE), Destination: b.Anchor(body.SW)}, action.NewAgent())
	require.NoError(t, err)
	assert.Nil(t, o.Result)

	mustPerform[*body.Link](t, e, action.RemoveLink{Link: l})
	assert.Empty(t, a.Anchor(body.NE).Links())
	assert.Empty(t, b.Anchor(body.NW).Links())
	assert.Equal(t, []string{EventLinkCreated, EventLinkRemoved}, received)
}

func TestNoSelfAttachment(t *testing.T) {
	e := newTestEngine(t, weightlessConfig())
	a := voxelAt(t, e, 0, 0)
	before := e.Snapshot().Hash()

	_, err := e.Perform(action.CreateLink{Source: a.Anchor(body.NE), Destination: a.Anchor(body.NW)}, action.NewAgent())
	assert.ErrorIs(t, err, action.ErrIllegalAction)
	assert.ErrorIs(t, err, body.ErrSameBody)

	_, err = e.Perform(action.AttractAnchor{Source: a.Anchor(body.NE), Destination: a.Anchor(body.NW), Magnitude: 1}, action.NewAgent())
	assert.ErrorIs(t, err, action.ErrIllegalAction)

	_, err = e.Perform(action.AttachClosestAnchors{N: 4, Source: a, Target: a}, action.NewAgent())
	assert.ErrorIs(t, err, action.ErrIllegalAction)

	assert.Empty(t, e.Links())
	assert.Equal(t, before, e.Snapshot().Hash())
}

func TestAttractAnchor(t *testing.T) {
	e := newTestEngine(t, weightlessConfig())
	a := voxelAt(t, e, 0, 0)
	near := voxelAt(t, e, 1.5, 0)
	far := voxelAt(t, e, 5, 0)

	o, err := e.Perform(action.AttractAnchor{Source: a.Anchor(body.NE), Destination: far.Anchor(body.NW), Magnitude: 1}, action.NewAgent())
	require.NoError(t, err)
	assert.Nil(t, o.Result)

	force := mustPerform[geometry.Point](t, e, action.AttractAnchor{Source: a.Anchor(body.NE), Destination: near.Anchor(body.NW), Magnitude: 0.5})
	assert.InDelta(t, 50, force.Length(), 1e-9)
	assert.Greater(t, force.X, 0.0)

	force = mustPerform[geometry.Point](t, e, action.AttractAnchor{Source: a.Anchor(body.NE), Destination: near.Anchor(body.NW), Magnitude: 7})
	assert.InDelta(t, 100, force.Length(), 1e-9)

	gap := func() float64 { return near.Anchor(body.NW).Point().X - a.Anchor(body.NE).Point().X }
	start := gap()
	for i := 0; i < 10; i++ {
		mustPerform[geometry.Point](t, e, action.AttractAnchor{Source: a.Anchor(body.NE), Destination: near.Anchor(body.NW), Magnitude: 1})
		_, err := e.Tick()
		require.NoError(t, err)
	}
	assert.Less(t, gap(), start)
}

func TestRemovalLeavesNoDanglingLinks(t *testing.T) {
	e := newTestEngine(t, weightlessConfig())
	a := voxelAt(t, e, 0, 0)
	b := voxelAt(t, e, 1, 0)
	c := voxelAt(t, e, 2, 0)
	mustPerform[[]*body.Link](t, e, action.AttachClosestAnchors{N: 2, Source: a, Target: b})
	mustPerform[[]*body.Link](t, e, action.AttachClosestAnchors{N: 2, Source: c, Target: b, Type: body.LinkSoft})
	require.Len(t, e.Links(), 8)

	mustPerform[body.Body](t, e, action.RemoveBody{Body: b})
	assert.False(t, e.IsAlive(b))
	assert.Len(t, e.Bodies(), 2)
	assert.Empty(t, e.Links())
	for _, live := range e.Bodies() {
		for _, anchor := range live.(body.Anchorable).Anchors() {
			assert.False(t, anchor.IsLinkedTo(b))
		}
	}
	assert.Equal(t, len(a.BackendBodies())+len(c.BackendBodies()), e.world.Backend().GetBodyCount())

	_, err := e.Perform(action.RemoveBody{Body: b}, action.NewAgent())
	assert.ErrorIs(t, err, action.ErrIllegalAction)
	_, err = e.Perform(action.CreateLink{Source: a.Anchor(body.NE), Destination: b.Anchor(body.NW)}, action.NewAgent())
	assert.ErrorIs(t, err, action.ErrIllegalAction)
}

type bogus struct{}

func (bogus) Kind() action.Kind { return action.KindUnknown }

func TestUnsupportedAction(t *testing.T) {
	e := newTestEngine(t, weightlessConfig())
	_, err := e.Perform(bogus{}, action.NewAgent())
	require.ErrorIs(t, err, action.ErrUnsupportedAction)
	assert.Contains(t, err.Error(), "bogus")

	_, err = e.Perform(nil, action.NewAgent())
	assert.ErrorIs(t, err, action.ErrUnsupportedAction)
}

func TestActuationIsClipped(t *testing.T) {
	e := newTestEngine(t, weightlessConfig())
	v := voxelAt(t, e, 0, 0)
	values := mustPerform[[4]float64](t, e, action.ActuateVoxel{Voxel: v, Values: [4]float64{3, -3, 0.25, -0.25}})
	assert.Equal(t, [4]float64{1, -1, 0.25, -0.25}, values)

	j := mustPerform[*body.RotationalJoint](t, e, action.CreateAndTranslateRotationalJoint{
		CreateRotationalJoint: action.CreateRotationalJoint{Length: 2, Width: 0.2, Mass: 1, ActiveRange: geometry.Symmetric(math.Pi / 4)},
		At:                    geometry.Point{Y: 3},
	})
	target := mustPerform[float64](t, e, action.ActuateRotationalJoint{Joint: j, Angle: 5})
	assert.InDelta(t, math.Pi/4, target, 1e-12)
}

func TestSensedValuesStayInRange(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	mustPerform[*body.UnmovableBody](t, e, action.CreateUnmovableBody{
		Poly:           geometry.Rectangle(20, 1).Translated(geometry.Point{X: -10, Y: -1}),
		AnchorsDensity: -1,
	})
	v := voxelAt(t, e, 0, 0.5)
	for i := 0; i < 90; i++ {
		sign := float64(i%30/15*2 - 1)
		mustPerform[[4]float64](t, e, action.ActuateVoxel{Voxel: v, Values: [4]float64{sign, -sign, sign, -sign}})
		_, err := e.Tick()
		require.NoError(t, err)
	}
	senses := append(action.VoxelSenses(v),
		action.SenseContact{Target: v},
		action.SenseRotatedVelocity{Target: v},
		action.SenseDistanceToBody{Target: v, Direction: -math.Pi / 2, Distance: 3},
	)
	for _, s := range senses {
		o, err := e.Perform(s, action.NewAgent())
		require.NoError(t, err)
		value, ok := action.ResultAs[float64](o)
		require.True(t, ok, s.Kind().String())
		assert.True(t, s.Range().Contains(value), "%s = %v outside %s", s.Kind(), value, s.Range())
		n, ok := action.NormalizedOutcome(o)
		require.True(t, ok)
		assert.True(t, geometry.SymmetricRange.Contains(n))
	}
}

func TestSenseDistanceAndContact(t *testing.T) {
	e := newTestEngine(t, weightlessConfig())
	ground := mustPerform[*body.UnmovableBody](t, e, action.CreateUnmovableBody{Poly: geometry.Rectangle(10, 1)})
	r := mustPerform[*body.RigidBody](t, e, action.CreateAndTranslateRigidBody{
		CreateRigidBody: action.CreateRigidBody{Poly: geometry.Square(1), Mass: 1},
		At:              geometry.Point{X: 2, Y: 3},
	})

	d := mustPerform[float64](t, e, action.SenseDistanceToBody{Target: r, Direction: -math.Pi / 2, Distance: 10})
	assert.InDelta(t, 2.5, d, 1e-6)
	d = mustPerform[float64](t, e, action.SenseDistanceToBody{Target: r, Direction: math.Pi / 2, Distance: 10})
	assert.InDelta(t, 10, d, 1e-9)

	assert.Equal(t, 0.0, mustPerform[float64](t, e, action.SenseContact{Target: r}))
	mustPerform[body.Body](t, e, action.TranslateBodyAt{Body: r, Destination: geometry.Point{X: 2, Y: 0.99}})
	_, err := e.Tick()
	require.NoError(t, err)
	assert.Equal(t, 1.0, mustPerform[float64](t, e, action.SenseContact{Target: r}))
	assert.Equal(t, 0.0, mustPerform[float64](t, e, action.SenseAngle{Target: ground}))
}

func TestRotateBody(t *testing.T) {
	e := newTestEngine(t, weightlessConfig())
	r := mustPerform[*body.RigidBody](t, e, action.CreateRigidBody{Poly: geometry.Rectangle(2, 1), Mass: 1, AnchorsDensity: 1})
	before := r.Poly().Centroid()
	mustPerform[body.Body](t, e, action.RotateBody{Body: r, Angle: 0.4})
	assert.InDelta(t, 0.4, mustPerform[float64](t, e, action.SenseAngle{Target: r}), 1e-9)
	after := r.Poly().Centroid()
	assert.InDelta(t, before.X, after.X, 1e-9)
	assert.InDelta(t, before.Y, after.Y, 1e-9)
}

// swingAgent owns one voxel and alternates its actuation, reading its area ratio every tick.
type swingAgent struct {
	id       uuid.UUID
	voxel    *body.Voxel
	at       geometry.Point
	times    []float64
	previous [][]action.Outcome
}

func (s *swingAgent) ID() uuid.UUID { return s.id }

func (s *swingAgent) Assemble(p action.Performer) error {
	o, err := p.Perform(action.CreateAndTranslateVoxel{At: s.at}, s)
	if err != nil {
		return err
	}
	s.voxel, _ = action.ResultAs[*body.Voxel](o)
	return nil
}

func (s *swingAgent) Bodies() []body.Body { return []body.Body{s.voxel} }

func (s *swingAgent) Act(t float64, previous []action.Outcome) []action.Action {
	s.times = append(s.times, t)
	s.previous = append(s.previous, previous)
	sign := 1.0
	if len(s.times)/20%2 == 1 {
		sign = -1
	}
	return []action.Action{
		action.ActuateVoxel{Voxel: s.voxel, Values: [4]float64{sign, sign, sign, sign}},
		action.SenseAreaRatio{Voxel: s.voxel},
	}
}

func TestTickDrivesAgents(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	agent := &swingAgent{id: action.NewAgentID(), at: geometry.Point{Y: 2}}
	mustPerform[action.EmbodiedAgent](t, e, action.AddAgent{Agent: agent})
	require.NotNil(t, agent.voxel)
	assert.True(t, e.IsAlive(agent.voxel))

	_, err := e.Perform(action.AddAgent{Agent: agent}, action.NewAgent())
	assert.ErrorIs(t, err, action.ErrIllegalAction)

	for i := 0; i < 3; i++ {
		snap, err := e.Tick()
		require.NoError(t, err)
		assert.Equal(t, uint64(i+1), snap.Tick)
	}
	dt := e.Config().TimeStep
	assert.InDeltaSlice(t, []float64{0, dt, 2 * dt}, agent.times, 1e-12)
	assert.InDelta(t, 3*dt, e.T(), 1e-12)

	assert.Empty(t, agent.previous[0])
	require.Len(t, agent.previous[1], 2)
	assert.Same(t, agent, agent.previous[1][0].Agent)
	_, ok := action.ResultAs[float64](agent.previous[1][1])
	assert.True(t, ok)
	assert.Len(t, e.LastOutcomes(), 2)
}

func TestDeterminism(t *testing.T) {
	trace := func() []uint64 {
		e := newTestEngine(t, DefaultConfig())
		mustPerform[*body.UnmovableBody](t, e, action.CreateUnmovableBody{
			Poly: geometry.Rectangle(20, 1).Translated(geometry.Point{X: -10, Y: -1}),
		})
		mustPerform[action.EmbodiedAgent](t, e, action.AddAgent{Agent: &swingAgent{id: action.NewAgentID(), at: geometry.Point{Y: 0.5}}})
		j := mustPerform[*body.RotationalJoint](t, e, action.CreateAndTranslateRotationalJoint{
			CreateRotationalJoint: action.CreateRotationalJoint{Length: 2, Width: 0.2, Mass: 1, ActiveRange: body.PassiveAngleRange},
			At:                    geometry.Point{X: 3, Y: 0.5},
		})
		mustPerform[float64](t, e, action.ActuateRotationalJoint{Joint: j, Angle: 0.6})

		var hashes []uint64
		for i := 0; i < 120; i++ {
			snap, err := e.Tick()
			require.NoError(t, err)
			hashes = append(hashes, snap.Hash())
		}
		return hashes
	}
	first, second := trace(), trace()
	assert.Equal(t, first, second)
	assert.NotEqual(t, first[0], first[len(first)-1])
}

func TestObserverAndClose(t *testing.T) {
	var (
		actions []action.Kind
		failed  int
		ticks   int
	)
	obs := ObserverFuncs{
		Action: func(kind action.Kind, _ time.Duration, err error) {
			actions = append(actions, kind)
			if err != nil {
				failed++
			}
		},
		Tick: func(Snapshot) { ticks++ },
	}
	e, err := New(weightlessConfig(), WithObserver(obs))
	require.NoError(t, err)

	voxelAt(t, e, 0, 0)
	_, err = e.Perform(bogus{}, nil)
	require.Error(t, err)
	_, err = e.Tick()
	require.NoError(t, err)

	assert.Equal(t, []action.Kind{
		action.KindCreateVoxel, action.KindTranslateBody, action.KindTranslateBodyAt,
		action.KindCreateAndTranslateVoxel, action.KindUnknown,
	}, actions)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, ticks)

	require.NoError(t, e.Close())
	assert.Empty(t, e.Bodies())
	assert.Zero(t, e.world.Backend().GetBodyCount())
	_, err = e.Perform(action.CreateVoxel{}, nil)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = e.Tick()
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, e.Close())
}

func TestInvalidConfigIsRejected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TimeStep = 0
	_, err := New(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadYAML(t *testing.T) {
	cfg, err := LoadYAML(strings.NewReader(`
time_step: 0.01
gravity: {x: 0, y: -1}
voxel:
  softness: 0.9
  scaffoldings: [SIDE_INTERNAL, CENTRAL_CROSS]
rigid:
  friction: 0.4
`))
	require.NoError(t, err)
	assert.Equal(t, 0.01, cfg.TimeStep)
	assert.Equal(t, -1.0, cfg.Gravity.Y)
	assert.Equal(t, 0.9, cfg.Voxel.Softness)
	assert.Equal(t, []body.SpringScaffolding{body.SideInternal, body.CentralCross}, cfg.Voxel.Scaffoldings)
	assert.Equal(t, 0.4, cfg.Rigid.Friction)
	assert.Equal(t, DefaultConfig().Motor, cfg.Motor)

	_, err = LoadYAML(strings.NewReader("time_stepp: 1\n"))
	assert.Error(t, err)

	_, err = LoadYAML(strings.NewReader("voxel: {area_ratio_range: {min: 1.1, max: 1.2}}\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg, err = LoadYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
