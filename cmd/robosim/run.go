package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zeusync/robosim/internal/core/episode"
	"github.com/zeusync/robosim/internal/core/observability/log"
	"github.com/zeusync/robosim/internal/injector"
)

// runConfig holds configuration for the run command.
type runConfig struct {
	gridFile    string
	episodes    int
	ticks       int
	workers     int
	groundWidth float64
	serveAddr   string
	token       string
	linger      bool
	jsonOutput  bool
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	cfg := &runConfig{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a grid robot on flat ground for a number of episodes",
		Long: `Run plays independent episodes of a grid robot standing on flat ground, in
parallel, and prints one summary line per episode. With --serve, every episode
is streamed to websocket viewers at /ws?room=episode-N and metrics are exposed
at /metrics.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runEpisodes(ctx, cmd, flags, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.gridFile, "grid", "", "grid robot file path (YAML); a four-voxel worm by default")
	cmd.Flags().IntVar(&cfg.episodes, "episodes", 1, "number of episodes")
	cmd.Flags().IntVar(&cfg.ticks, "ticks", 600, "ticks per episode")
	cmd.Flags().IntVar(&cfg.workers, "workers", 0, "episodes run at once; 0 uses every CPU")
	cmd.Flags().Float64Var(&cfg.groundWidth, "ground-width", 40, "width of the terrain")
	cmd.Flags().StringVar(&cfg.serveAddr, "serve", "", "serve viewers and metrics on this address")
	cmd.Flags().StringVar(&cfg.token, "token", "", "token required from viewers")
	cmd.Flags().BoolVar(&cfg.linger, "linger", false, "keep serving after the episodes until interrupted")
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output results as JSON")

	return cmd
}

func runEpisodes(ctx context.Context, cmd *cobra.Command, flags *globalFlags, cfg *runConfig) error {
	level, err := log.ParseLevel(flags.logLevel)
	if err != nil {
		return err
	}
	app, cleanup, err := injector.InitializeApp(injector.Options{
		ConfigFile:  flags.configFile,
		GridFile:    cfg.gridFile,
		LogLevel:    level,
		ServeAddr:   cfg.serveAddr,
		Token:       cfg.token,
		Ticks:       cfg.ticks,
		Workers:     cfg.workers,
		GroundWidth: cfg.groundWidth,
	})
	if err != nil {
		return err
	}
	defer cleanup()
	defer func() { _ = app.Logger.Sync() }()

	if app.Server != nil {
		if err := app.Server.Start(ctx); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		cmd.PrintErrf("serving on %s\n", app.Server.Addr())
	}

	start := time.Now()
	results, err := app.Runner.Run(ctx, cfg.episodes)
	if err != nil {
		return err
	}
	app.Logger.Info("run finished", log.Duration("elapsed", time.Since(start)))

	if cfg.jsonOutput {
		if err := writeResultsJSON(cmd.OutOrStdout(), results); err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
	} else {
		writeResultsTable(cmd.OutOrStdout(), results)
	}

	if app.Server != nil && cfg.linger {
		<-ctx.Done()
	}
	return nil
}

type resultLine struct {
	Episode int     `json:"episode"`
	Ticks   uint64  `json:"ticks"`
	T       float64 `json:"t"`
	Bodies  int     `json:"bodies"`
	Links   int     `json:"links"`
	Hash    string  `json:"hash"`
}

func lines(results []episode.Result) []resultLine {
	out := make([]resultLine, len(results))
	for i, r := range results {
		out[i] = resultLine{
			Episode: r.Episode,
			Ticks:   r.Ticks,
			T:       r.T,
			Bodies:  r.Bodies,
			Links:   r.Links,
			Hash:    fmt.Sprintf("%016x", r.Hash),
		}
	}
	return out
}

func writeResultsJSON(w io.Writer, results []episode.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(lines(results))
}

func writeResultsTable(w io.Writer, results []episode.Result) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "EPISODE\tTICKS\tT\tBODIES\tLINKS\tHASH")
	for _, l := range lines(results) {
		_, _ = fmt.Fprintf(tw, "%d\t%d\t%.3f\t%d\t%d\t%s\n", l.Episode, l.Ticks, l.T, l.Bodies, l.Links, l.Hash)
	}
	_ = tw.Flush()
}
