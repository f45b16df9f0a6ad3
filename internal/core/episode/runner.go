// Package episode runs independent simulations of the same scene side by side.
package episode

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/zeusync/robosim/internal/core/action"
	"github.com/zeusync/robosim/internal/core/engine"
	"github.com/zeusync/robosim/internal/core/geometry"
	"github.com/zeusync/robosim/internal/core/observability/log"
	"github.com/zeusync/robosim/internal/core/robot"
	"github.com/zeusync/robosim/pkg/concurrent"
	"github.com/zeusync/robosim/pkg/sequence"
)

var ErrInvalidRun = errors.New("invalid episode run")

// Scene populates a fresh engine before the first tick.
type Scene func(e *engine.Engine, episode int) error

// Result summarizes one finished episode.
type Result struct {
	Episode int
	Engine  string
	Ticks   uint64
	T       float64
	Hash    uint64
	Bodies  int
	Links   int
	Final   engine.Snapshot
}

// Runner builds one engine per episode. Engines share nothing, so episodes run in parallel;
// every episode of a run ticks the same number of times.
type Runner struct {
	Config  engine.Config
	Scene   Scene
	Ticks   int
	Workers int
	Logger  log.Log
	// Options returns extra options for the engine of one episode, e.g. its observers.
	Options func(episode int) []engine.Option
}

func (r *Runner) validate(episodes int) error {
	switch {
	case episodes <= 0:
		return fmt.Errorf("%w: %d episodes", ErrInvalidRun, episodes)
	case r.Ticks < 0:
		return fmt.Errorf("%w: %d ticks", ErrInvalidRun, r.Ticks)
	case r.Scene == nil:
		return fmt.Errorf("%w: no scene", ErrInvalidRun)
	}
	return r.Config.Validate()
}

// Run plays episodes to completion and returns their results in episode order. The first
// failing episode cancels the others.
func (r *Runner) Run(ctx context.Context, episodes int) ([]Result, error) {
	if err := r.validate(episodes); err != nil {
		return nil, err
	}
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	logger := r.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	results, err := concurrent.ParallelMap(ctx, sequence.Range(episodes), workers, func(ctx context.Context, i int) (Result, error) {
		return r.play(ctx, i, logger.With(log.Int("episode", i)))
	})
	if err != nil {
		return nil, err
	}
	logger.Info("episodes finished",
		log.Int("episodes", episodes),
		log.Int("distinct_outcomes", len(Distinct(results))),
	)
	return results, nil
}

func (r *Runner) play(ctx context.Context, i int, logger log.Log) (res Result, err error) {
	opts := []engine.Option{engine.WithLogger(logger)}
	if r.Options != nil {
		opts = append(opts, r.Options(i)...)
	}
	e, err := engine.New(r.Config, opts...)
	if err != nil {
		return res, err
	}
	defer func() {
		err = errors.Join(err, e.Close())
	}()

	if err := r.Scene(e, i); err != nil {
		return res, fmt.Errorf("episode %d: scene: %w", i, err)
	}
	snap := e.Snapshot()
	for n := 0; n < r.Ticks; n++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if snap, err = e.Tick(); err != nil {
			return res, fmt.Errorf("episode %d: %w", i, err)
		}
	}
	return Result{
		Episode: i,
		Engine:  e.ID(),
		Ticks:   snap.Tick,
		T:       snap.T,
		Hash:    snap.Hash(),
		Bodies:  len(snap.Bodies),
		Links:   len(snap.Links),
		Final:   snap,
	}, nil
}

// Distinct returns the distinct final hashes of results. Episodes of the same scene always
// agree, so more than one hash means the scene depends on the episode index.
func Distinct(results []Result) []uint64 {
	hashes := sequence.ToArray(sequence.From(results), func(r Result) uint64 { return r.Hash })
	seen := make(map[uint64]struct{}, len(hashes))
	out := hashes[:0]
	for _, h := range hashes {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

// GridOnGround is the scene of a grid robot standing on a flat strip of terrain.
func GridOnGround(cfg robot.GridConfig, groundWidth float64) Scene {
	return func(e *engine.Engine, _ int) error {
		owner := action.NewAgent()
		ground := geometry.Rectangle(groundWidth, 1).Translated(geometry.Point{X: -groundWidth / 2, Y: -1})
		if _, err := e.Perform(action.CreateUnmovableBody{Poly: ground, AnchorsDensity: -1}, owner); err != nil {
			return err
		}
		g, err := robot.NewGrid(cfg)
		if err != nil {
			return err
		}
		_, err = e.Perform(action.AddAgent{Agent: g}, owner)
		return err
	}
}
