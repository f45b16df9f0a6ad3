package episode

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zeusync/robosim/internal/core/action"
	"github.com/zeusync/robosim/internal/core/body"
	"github.com/zeusync/robosim/internal/core/engine"
	"github.com/zeusync/robosim/internal/core/robot"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestEpisodesAgree(t *testing.T) {
	var mu sync.Mutex
	ticks := make(map[int]int)
	r := Runner{
		Config:  engine.DefaultConfig(),
		Scene:   GridOnGround(robot.Worm(3), 20),
		Ticks:   90,
		Workers: 3,
		Options: func(episode int) []engine.Option {
			return []engine.Option{engine.WithObserver(engine.ObserverFuncs{Tick: func(engine.Snapshot) {
				mu.Lock()
				ticks[episode]++
				mu.Unlock()
			}})}
		},
	}
	results, err := r.Run(context.Background(), 6)
	require.NoError(t, err)
	require.Len(t, results, 6)

	for i, res := range results {
		assert.Equal(t, i, res.Episode)
		assert.Equal(t, uint64(90), res.Ticks)
		assert.InDelta(t, 1.5, res.T, 1e-9)
		// terrain plus three voxels, two links per neighbour pair in both directions
		assert.Equal(t, 4, res.Bodies)
		assert.Equal(t, 2*2*2, res.Links)
		assert.Equal(t, 90, ticks[i])
	}
	assert.Len(t, Distinct(results), 1)
	assert.NotEqual(t, results[0].Engine, results[1].Engine)
}

func TestSceneFailureStopsRun(t *testing.T) {
	boom := errors.New("boom")
	r := Runner{
		Config: engine.DefaultConfig(),
		Scene: func(e *engine.Engine, episode int) error {
			if episode == 2 {
				return boom
			}
			return nil
		},
		Ticks: 10,
	}
	results, err := r.Run(context.Background(), 4)
	assert.Nil(t, results)
	assert.ErrorIs(t, err, boom)
}

func TestAgentFailureStopsRun(t *testing.T) {
	r := Runner{
		Config: engine.DefaultConfig(),
		Scene: func(e *engine.Engine, _ int) error {
			_, err := e.Perform(action.AddAgent{Agent: &badAgent{id: action.NewAgentID()}}, action.NewAgent())
			return err
		},
		Ticks: 10,
	}
	_, err := r.Run(context.Background(), 2)
	assert.ErrorIs(t, err, action.ErrIllegalAction)
}

func TestCanceledRun(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	r := Runner{
		Config: engine.DefaultConfig(),
		Scene:  GridOnGround(robot.Worm(2), 10),
		Ticks:  1 << 20,
	}
	_, err := r.Run(ctx, 2)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInvalidRun(t *testing.T) {
	r := Runner{Config: engine.DefaultConfig(), Scene: GridOnGround(robot.Worm(1), 4)}
	_, err := r.Run(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidRun)

	r.Scene = nil
	_, err = r.Run(context.Background(), 1)
	assert.ErrorIs(t, err, ErrInvalidRun)

	r.Scene = GridOnGround(robot.Worm(1), 4)
	r.Config.TimeStep = 0
	_, err = r.Run(context.Background(), 1)
	assert.ErrorIs(t, err, engine.ErrInvalidConfig)
}

// badAgent links its voxel to itself on every tick.
type badAgent struct {
	id    uuid.UUID
	voxel *body.Voxel
}

func (a *badAgent) ID() uuid.UUID { return a.id }

func (a *badAgent) Assemble(p action.Performer) error {
	o, err := p.Perform(action.CreateVoxel{}, a)
	if err != nil {
		return err
	}
	a.voxel, _ = action.ResultAs[*body.Voxel](o)
	return nil
}

func (a *badAgent) Bodies() []body.Body { return []body.Body{a.voxel} }

func (a *badAgent) Act(float64, []action.Outcome) []action.Action {
	return []action.Action{action.AttachClosestAnchors{N: 1, Source: a.voxel, Target: a.voxel}}
}
