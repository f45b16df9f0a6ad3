// Package injector wires the simulation application: logger, configuration, metrics, the
// optional viewer server and the episode runner.
package injector

import (
	"fmt"

	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zeusync/robosim/internal/core/engine"
	"github.com/zeusync/robosim/internal/core/episode"
	"github.com/zeusync/robosim/internal/core/events/bus"
	"github.com/zeusync/robosim/internal/core/observability/log"
	"github.com/zeusync/robosim/internal/core/observability/metrics"
	"github.com/zeusync/robosim/internal/core/robot"
	"github.com/zeusync/robosim/internal/server"
)

// Options are the inputs the application is built from.
type Options struct {
	ConfigFile string
	GridFile   string
	LogLevel   log.Level
	// ServeAddr enables the viewer server when not empty.
	ServeAddr   string
	Token       string
	Ticks       int
	Workers     int
	GroundWidth float64
}

// App is the wired application.
type App struct {
	Logger   log.Log
	Config   engine.Config
	Grid     robot.GridConfig
	Metrics  *metrics.Collector
	Registry *prometheus.Registry
	// Server is nil when no address was given.
	Server *server.Server
	Runner *episode.Runner
}

var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideEngineConfig,
	ProvideGridConfig,
	ProvideRegistry,
	ProvideMetrics,
	ProvideServer,
	ProvideRunner,
	wire.Struct(new(App), "*"),
)

func ProvideLogger(opts Options) log.Log {
	return log.New(opts.LogLevel)
}

func ProvideEngineConfig(opts Options) (engine.Config, error) {
	if opts.ConfigFile == "" {
		return engine.DefaultConfig(), nil
	}
	return engine.LoadFile(opts.ConfigFile)
}

// ProvideGridConfig loads the robot, a four-voxel worm by default.
func ProvideGridConfig(opts Options) (robot.GridConfig, error) {
	if opts.GridFile == "" {
		return robot.Worm(4), nil
	}
	return robot.LoadGridFile(opts.GridFile)
}

func ProvideRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

func ProvideMetrics(reg *prometheus.Registry) (*metrics.Collector, error) {
	c := metrics.New()
	if err := c.Register(reg); err != nil {
		return nil, err
	}
	return c, nil
}

// ProvideServer builds the viewer server, exposing the registry on /metrics. It returns nil
// when opts.ServeAddr is empty.
func ProvideServer(opts Options, logger log.Log, reg *prometheus.Registry) (*server.Server, func(), error) {
	if opts.ServeAddr == "" {
		return nil, func() {}, nil
	}
	cfg := server.DefaultConfig()
	cfg.ListenAddr = opts.ServeAddr
	cfg.Token = opts.Token
	s, err := server.New(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	s.Handle("/metrics", metrics.Handler(reg))
	return s, func() { _ = s.Close() }, nil
}

// RoomName names the viewer room of an episode.
func RoomName(episode int) string { return fmt.Sprintf("episode-%d", episode) }

// ProvideRunner runs the grid robot on flat ground. Every episode gets its own event bus;
// metrics observe all of them and each episode streams to its own room when serving.
func ProvideRunner(opts Options, cfg engine.Config, grid robot.GridConfig, logger log.Log, collector *metrics.Collector, srv *server.Server) *episode.Runner {
	width := opts.GroundWidth
	if width <= 0 {
		width = 40
	}
	return &episode.Runner{
		Config:  cfg,
		Scene:   episode.GridOnGround(grid, width),
		Ticks:   opts.Ticks,
		Workers: opts.Workers,
		Logger:  logger,
		Options: func(i int) []engine.Option {
			b := bus.New()
			b.AddObserver(collector)
			engineOpts := []engine.Option{engine.WithEventBus(b), engine.WithObserver(collector)}
			if srv != nil {
				room := srv.Room(RoomName(i))
				if _, err := room.Subscribe(b); err != nil {
					logger.Warn("room subscription failed", log.String("room", room.ID()), log.Error(err))
				}
				engineOpts = append(engineOpts, engine.WithObserver(room))
			}
			return engineOpts
		},
	}
}
