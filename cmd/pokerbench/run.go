package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pokerbench/pokerbench/internal/config"
	"github.com/pokerbench/pokerbench/internal/llmdriver"
	"github.com/pokerbench/pokerbench/internal/modeltransport"
	"github.com/pokerbench/pokerbench/internal/orchestrator"
	"github.com/pokerbench/pokerbench/internal/recorder"
	"github.com/pokerbench/pokerbench/internal/reporter"
	"github.com/pokerbench/pokerbench/internal/runner"
	"github.com/pokerbench/pokerbench/internal/telemetry"
)

// RunCmd runs a benchmark from an HCL config file end to end: load and
// validate the config, build one Orchestrator run per tournament, write
// persisted outputs under the config's output.log_dir, and print a
// leaderboard and summary to stdout. Grounded on cmd/pokerforbots/bot.go's
// signal-handling pattern for graceful cancellation mid-benchmark.
type RunCmd struct {
	Config string `arg:"" help:"Path to the benchmark's HCL config file"`
	Server string `default:"ws://localhost:8080/ws" help:"Model-serving WebSocket endpoint"`
	Debug  bool   `help:"Enable debug-level logging on both loggers"`
}

func (c *RunCmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return fmt.Errorf("pokerbench: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("pokerbench: %w", err)
	}

	schedule, err := cfg.BlindSchedule()
	if err != nil {
		return fmt.Errorf("pokerbench: %w", err)
	}

	runLog := telemetry.NewRunLogger(c.Debug || cfg.Output.Verbose)
	agentLog := telemetry.NewAgentLogger(c.Debug || cfg.Output.Verbose)

	apiKey := os.Getenv("OPENROUTER_API_KEY")
	transport := modeltransport.NewWSTransport(c.Server, apiKey, agentLog, cfg.AgentSettings.MaxRetries)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		runLog.Warn().Msg("interrupt received, cancelling in-flight runs")
		cancel()
	}()

	if err := transport.Connect(ctx); err != nil {
		return fmt.Errorf("pokerbench: connecting to model transport: %w", err)
	}
	defer transport.Close()

	meta := recorder.RunMeta{
		NumPlayers:    cfg.Tournament.Seats,
		StartingStack: cfg.Tournament.StartingStack,
	}
	for _, l := range cfg.Tournament.BlindLevels {
		meta.BlindSchedule = append(meta.BlindSchedule, recorder.BlindLevelMeta{Hands: l.Hands, SB: l.SB, BB: l.BB})
	}

	players := make([]recorder.PlayerEntry, len(cfg.Agents))
	for i, a := range cfg.Agents {
		players[i] = recorder.PlayerEntry{Seat: i, Name: a.Name}
	}

	orchCfg := orchestrator.Config{
		NumRuns:       cfg.Tournament.NumRuns,
		SeedBase:      int64(cfg.Tournament.SeedBase),
		StartingStack: cfg.Tournament.StartingStack,
		BlindSchedule: schedule,
		Agents:        cfg.BuildAgentDefs(),
		SinkFactory: func(runIndex int, seed int64) runner.Sink {
			runMeta := meta
			runMeta.Seed = seed
			rec, err := recorder.NewRunRecorder(runDir(cfg.Output.LogDir, runIndex), runMeta, players)
			if err != nil {
				runLog.Error().Err(err).Int("run", runIndex).Msg("failed to create run recorder, persisted output for this run will be incomplete")
				return noopSink{}
			}
			return rec
		},
	}

	orch := orchestrator.New(orchCfg, transport, runLog, agentLog)
	summary, err := orch.Run(ctx)
	if err != nil {
		return fmt.Errorf("pokerbench: %w", err)
	}

	for _, run := range summary.Runs {
		if err := recorder.WriteResults(runDir(cfg.Output.LogDir, run.RunNumber), run); err != nil {
			runLog.Error().Err(err).Int("run", run.RunNumber).Msg("failed to write results.json")
		}
	}
	if err := recorder.WriteSummary(cfg.Output.LogDir, summary); err != nil {
		runLog.Error().Err(err).Msg("failed to write summary.json")
	}

	styles := reporter.DefaultStyles()
	fmt.Println(reporter.RenderLeaderboard(summary, styles))
	reporter.WriteSummaryLines(os.Stdout, summary, styles)

	if len(summary.Failures) > 0 {
		return fmt.Errorf("pokerbench: %d of %d runs failed", len(summary.Failures), cfg.Tournament.NumRuns)
	}
	return nil
}

func runDir(logDir string, runIndex int) string {
	return filepath.Join(logDir, fmt.Sprintf("tournament_%03d", runIndex))
}

// noopSink is used when a run's recorder fails to initialize, so one run's
// persisted-output failure doesn't abort the whole benchmark (§7 per-run
// isolation applies to output writing too).
type noopSink struct{}

func (noopSink) HandComplete(runner.HandResult)             {}
func (noopSink) Decision(int, int, llmdriver.DecisionTrace) {}
