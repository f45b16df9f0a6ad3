package robot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/robosim/internal/core/action"
	"github.com/zeusync/robosim/internal/core/body"
	"github.com/zeusync/robosim/internal/core/engine"
	"github.com/zeusync/robosim/internal/core/geometry"
)

const biped = `
rows:
  - "sss"
  - "r.r"
origin: {x: 0, y: 0.1}
link_type: soft
controllers:
  s: {kind: sine, amplitude: 1, frequency: 2, phase_step: 0.5}
  r: {kind: reflex, gain: 0.5}
`

func TestLoadGridConfig(t *testing.T) {
	cfg, err := LoadGridConfig(strings.NewReader(biped))
	require.NoError(t, err)
	assert.Equal(t, []string{"sss", "r.r"}, cfg.Rows)
	assert.Equal(t, ControllerReflex, cfg.Controllers["r"].Kind)
	lt, err := cfg.linkType()
	require.NoError(t, err)
	assert.Equal(t, body.LinkSoft, lt)
}

func TestGridConfigValidation(t *testing.T) {
	cases := map[string]string{
		"no rows":                "controllers: {}\n",
		"undeclared controller":  "rows: [\"ab\"]\ncontrollers: {a: {kind: idle}}\n",
		"unknown kind":           "rows: [\"a\"]\ncontrollers: {a: {kind: dance}}\n",
		"unknown link":           "rows: [\"a\"]\nlink_type: glue\ncontrollers: {a: {kind: idle}}\n",
		"empty grid":             "rows: [\"..\"]\ncontrollers: {a: {kind: idle}}\n",
		"long controller name":   "rows: [\"a\"]\ncontrollers: {a: {kind: idle}, ab: {kind: idle}}\n",
		"invalid voxel material": "rows: [\"a\"]\nvoxel: {side_length: -1}\ncontrollers: {a: {kind: idle}}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadGridConfig(strings.NewReader(doc))
			assert.ErrorIs(t, err, ErrInvalidGrid)
		})
	}
	_, err := LoadGridConfig(strings.NewReader("rows: [\"a\"]\nunknown: 1\n"))
	assert.Error(t, err)
}

func assembled(t *testing.T, cfg GridConfig) (*engine.Engine, *Grid) {
	t.Helper()
	ecfg := engine.DefaultConfig()
	e, err := engine.New(ecfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	_, err = e.Perform(action.CreateUnmovableBody{Poly: geometry.Rectangle(40, 1).Translated(geometry.Point{X: -20, Y: -1})}, action.NewAgent())
	require.NoError(t, err)

	g, err := NewGrid(cfg)
	require.NoError(t, err)
	_, err = e.Perform(action.AddAgent{Agent: g}, action.NewAgent())
	require.NoError(t, err)
	return e, g
}

func TestGridAssembly(t *testing.T) {
	cfg, err := LoadGridConfig(strings.NewReader(biped))
	require.NoError(t, err)
	_, g := assembled(t, cfg)

	require.Len(t, g.Cells(), 5)
	// two horizontal and two vertical neighbour pairs
	assert.Len(t, g.Links(), 4*2)
	for _, l := range g.Links() {
		assert.Equal(t, body.LinkSoft, l.Type())
	}

	first := g.Cells()[0].Voxel.Poly().BoundingBox()
	assert.InDelta(t, 0, first.Min.X, 1e-9)
	assert.InDelta(t, 1.1, first.Min.Y, 1e-9)
	last := g.Cells()[4]
	assert.Equal(t, 2, last.Col)
	assert.Equal(t, ControllerReflex, g.config.Controllers[last.name].Kind)

	assert.Error(t, g.Assemble(nil))
}

func TestGridActsPerCell(t *testing.T) {
	cfg, err := LoadGridConfig(strings.NewReader(biped))
	require.NoError(t, err)
	e, g := assembled(t, cfg)

	actions := g.Act(0.125, nil)
	// one actuation per cell plus four readings for each reflex cell
	assert.Len(t, actions, 5+2*4)
	first := actions[0].(action.ActuateVoxel)
	assert.InDelta(t, 1, first.Values[0], 1e-9)

	for i := 0; i < 30; i++ {
		_, err := e.Tick()
		require.NoError(t, err)
	}
	outcomes := e.LastOutcomes()
	assert.Len(t, outcomes, 13)
	for _, o := range outcomes {
		if s, ok := o.Action.(action.SenseSideCompression); ok {
			v, _ := action.ResultAs[float64](o)
			assert.True(t, s.Range().Contains(v))
		}
	}
}

func TestWormMoves(t *testing.T) {
	e, g := assembled(t, Worm(4))
	start := g.Center()
	_, err := e.Run(120)
	require.NoError(t, err)
	assert.NotEqual(t, start, g.Center())
	assert.Len(t, g.Links(), 3*2)
}

func TestControllers(t *testing.T) {
	c := Cell{Col: 2}
	s := newController(ControllerConfig{Kind: ControllerSine, Amplitude: 0.5, Frequency: 1})
	assert.Equal(t, [4]float64{0, 0, 0, 0}, s.Actuation(0, Cell{}, [4]float64{}, false))
	v := s.Actuation(0.25, c, [4]float64{}, false)
	assert.InDelta(t, 0.5, v[0], 1e-12)

	r := newController(ControllerConfig{Kind: ControllerReflex, Gain: 2})
	assert.Equal(t, [4]float64{}, r.Actuation(0, c, [4]float64{1, 1, 1, 1}, false))
	assert.Equal(t, [4]float64{-1, 0, 1, 2}, r.Actuation(0, c, [4]float64{-0.5, 0, 0.5, 1}, true))
	assert.True(t, r.Senses())

	k := newController(ControllerConfig{Kind: ControllerConstant, Values: [4]float64{1, 0, -1, 0}})
	assert.Equal(t, [4]float64{1, 0, -1, 0}, k.Actuation(3, c, [4]float64{}, false))
	assert.Equal(t, [4]float64{}, newController(ControllerConfig{Kind: ControllerIdle}).Actuation(1, c, [4]float64{}, true))
}
