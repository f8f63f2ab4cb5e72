// Command vmtsim runs the deterministic agent-trading simulation core and
// inspects telemetry recorded from past runs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/mini-world/internal/scenario"
	"github.com/talgya/mini-world/internal/scenarioloader"
	"github.com/talgya/mini-world/internal/sim"
	"github.com/talgya/mini-world/internal/telemetry"
	"github.com/talgya/mini-world/internal/telemetrysink/resilient"
	"github.com/talgya/mini-world/internal/telemetrysink/sqlite"
)

const (
	exitOK         = 0
	exitUnexpected = 1
	exitConfig     = 2
	exitIO         = 3
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		usage()
		os.Exit(exitUnexpected)
	}

	var code int
	switch os.Args[1] {
	case "run":
		code = runCmd(os.Args[2:], logger)
	case "view":
		code = viewCmd(os.Args[2:], logger)
	default:
		usage()
		code = exitUnexpected
	}
	os.Exit(code)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: vmtsim run <scenario.yaml> --seed N [--max-ticks N] [--db path]")
	fmt.Fprintln(os.Stderr, "       vmtsim view <db_path>")
}

func runCmd(args []string, logger *slog.Logger) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	seed := fs.Int64("seed", 0, "deterministic RNG seed")
	maxTicks := fs.Uint64("max-ticks", 1000, "number of ticks to run")
	dbPath := fs.String("db", "vmtsim.db", "path to the telemetry database")
	level := fs.String("level", "standard", "telemetry verbosity: standard or debug")
	if err := fs.Parse(args); err != nil {
		return exitConfig
	}
	if fs.NArg() < 1 {
		usage()
		return exitConfig
	}
	scenarioPath := fs.Arg(0)
	// Flags may also follow the scenario path, as the usage line shows.
	if err := fs.Parse(fs.Args()[1:]); err != nil {
		return exitConfig
	}
	lvl := telemetry.ParseLevel(*level)

	sc, err := scenarioloader.Load(scenarioPath)
	if err != nil {
		var cfgErr *scenario.ConfigError
		if errors.As(err, &cfgErr) {
			logger.Error("invalid scenario", "error", err)
			return exitConfig
		}
		logger.Error("failed to load scenario", "error", err)
		return exitIO
	}
	logger.Info("scenario loaded", "name", sc.Name, "fingerprint", sc.Fingerprint(), "agents", sc.AgentCount)

	rawSink, err := sqlite.Open(*dbPath)
	if err != nil {
		logger.Error("failed to open telemetry database", "error", err)
		return exitIO
	}
	sink := resilient.Wrap(rawSink, logger)

	runner, err := sim.New(sc, *seed, sim.Options{Sink: sink, Logger: logger, Level: lvl})
	if err != nil {
		logger.Error("failed to build simulation", "error", err)
		sink.Close()
		return exitUnexpected
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, stopping after current tick", "signal", sig)
		cancel()
	}()

	start := time.Now()
	runErr := runner.Run(ctx, *maxTicks)
	closeErr := runner.Close()
	sinkCloseErr := sink.Close()

	if runErr != nil && runErr != context.Canceled {
		logger.Error("simulation run failed", "error", runErr)
		return exitUnexpected
	}
	if closeErr != nil {
		logger.Error("failed to release simulation resources", "error", closeErr)
	}
	if sinkCloseErr != nil {
		logger.Error("failed to close telemetry database", "error", sinkCloseErr)
	}

	elapsed := time.Since(start)
	rate := int64(0)
	if elapsed.Seconds() > 0 {
		rate = int64(float64(runner.Tick) / elapsed.Seconds())
	}
	logger.Info("run complete",
		"ticks", humanize.Comma(int64(runner.Tick)),
		"elapsed", elapsed,
		"rate", fmt.Sprintf("%s ticks/sec", humanize.Comma(rate)),
		"db", *dbPath,
	)
	return exitOK
}

func viewCmd(args []string, logger *slog.Logger) int {
	fs := flag.NewFlagSet("view", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return exitConfig
	}
	if fs.NArg() < 1 {
		usage()
		return exitConfig
	}
	dbPath := fs.Arg(0)

	conn, err := sqlx.Open("sqlite", dbPath+"?mode=ro")
	if err != nil {
		logger.Error("failed to open telemetry database", "error", err)
		return exitIO
	}
	defer conn.Close()

	type runRow struct {
		RunID               string  `db:"run_id"`
		ScenarioFingerprint string  `db:"scenario_fingerprint"`
		Seed                int64   `db:"seed"`
		StartedAt           string  `db:"started_at"`
		EndedAt             *string `db:"ended_at"`
		FinalTick           *uint64 `db:"final_tick"`
	}
	var runs []runRow
	if err := conn.Select(&runs, `SELECT run_id, scenario_fingerprint, seed, started_at, ended_at, final_tick FROM runs ORDER BY started_at`); err != nil {
		logger.Error("failed to read runs table", "error", err)
		return exitIO
	}

	for _, r := range runs {
		var tradeCount int
		_ = conn.Get(&tradeCount, `SELECT COUNT(*) FROM trades WHERE run_id = ?`, r.RunID)

		ended := "running"
		if r.EndedAt != nil {
			ended = *r.EndedAt
		}
		finalTick := "n/a"
		if r.FinalTick != nil {
			finalTick = fmt.Sprintf("%d", *r.FinalTick)
		}
		fmt.Printf("run %s  fingerprint=%s  seed=%d  started=%s  ended=%s  final_tick=%s  trades=%d\n",
			r.RunID, r.ScenarioFingerprint, r.Seed, r.StartedAt, ended, finalTick, tradeCount)
	}

	if len(runs) == 0 {
		fmt.Println("no runs recorded")
	}
	return exitOK
}
