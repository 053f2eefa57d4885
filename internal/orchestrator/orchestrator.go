// Package orchestrator implements the Multi-Run Orchestrator (§4.12): it
// drives N independent tournament runs, optionally in parallel, and
// aggregates per-agent placement, win, and invalid-action statistics
// across them.
package orchestrator

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	charmlog "github.com/charmbracelet/log"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pokerbench/pokerbench/internal/agentmanager"
	"github.com/pokerbench/pokerbench/internal/blinds"
	"github.com/pokerbench/pokerbench/internal/llmdriver"
	"github.com/pokerbench/pokerbench/internal/modeltransport"
	"github.com/pokerbench/pokerbench/internal/runner"
)

// AgentDef is one seat's identity, stable across every run of a benchmark
// (§6's `agents[]` table).
type AgentDef struct {
	SeatNumber int
	Name       string
	Model      string
	Params     modeltransport.Params
	MaxTurns   int
	MaxRetries int
}

// Config bundles everything every run shares: the blind structure, starting
// stack, agent roster, and how many runs to play.
type Config struct {
	NumRuns       int
	SeedBase      int64
	StartingStack int
	BlindSchedule *blinds.Schedule
	Agents        []AgentDef
	// Parallelism caps the number of runs executing at once. 0 uses
	// runtime.NumCPU(), matching the teacher's EstimateEquityParallel worker
	// count pattern.
	Parallelism int
	// SinkFactory, if set, builds one extra runner.Sink per run (an
	// internal/recorder.RunRecorder, in cmd/pokerbench) that sees every
	// HandComplete/Decision callback alongside the Orchestrator's own
	// internal bookkeeping sink. Persisted-output writing is therefore the
	// caller's concern, not the Orchestrator's - it only ever aggregates
	// in memory.
	SinkFactory func(runIndex int, seed int64) runner.Sink
}

// AgentStats is one agent's aggregate record across every run it played.
type AgentStats struct {
	Name            string
	RunsPlayed      int
	Wins            int // placement == 1
	PlacementTotal  int // sum of placements, for computing a mean
	Decisions       int
	ForcedDecisions int // decisions the driver could not get a legal answer for
}

// RunResult is one completed run's report, the source data for
// `tournament_KKK/results.json`.
type RunResult struct {
	RunNumber       int
	Seed            int64
	TotalHands      int
	Placements      map[string]int // agent name -> rank
	HandResults     []runner.HandResult
	DecisionsByName map[string]int
	ForcedByName    map[string]int
}

// Summary is the cross-run aggregate, the source data for `summary.json`.
type Summary struct {
	Runs       []RunResult
	AgentStats map[string]AgentStats
	Failures   []RunFailure
}

// RunFailure records a run that aborted with a fatal error (§7's per-run
// isolation: one run's fatal error does not stop the others).
type RunFailure struct {
	RunNumber int
	Seed      int64
	Err       error
}

// Transport is the shared model transport used to build each run's own
// Driver. The Driver itself is stateless across seats/hands, so one
// transport backs every run; only the per-run Manager and Memory are
// exclusive to a run (§4.12's "no shared mutable state across runs").
type Transport = modeltransport.ModelTransport

// Orchestrator runs a Config's tournaments and aggregates results. It
// carries two loggers, matching the teacher's own split: zerolog for its
// own run start/end/summary/fatal-abort lines, and a charmbracelet/log
// logger handed down to every run's Driver/Manager for per-seat decision
// logging (§9 "two loggers are carried").
type Orchestrator struct {
	cfg       Config
	transport Transport
	log       zerolog.Logger
	agentLog  *charmlog.Logger
}

// New creates an Orchestrator. agentLog is passed through unmodified to
// every run's llmdriver.Driver; runLog is this Orchestrator's own
// structured logger for run-level events.
func New(cfg Config, transport Transport, runLog zerolog.Logger, agentLog *charmlog.Logger) *Orchestrator {
	return &Orchestrator{cfg: cfg, transport: transport, log: runLog.With().Str("component", "orchestrator").Logger(), agentLog: agentLog}
}

// runSink accumulates one run's hand results and decision statistics. It is
// exclusive to the run that owns it - never shared across goroutines - so it
// needs no locking of its own.
type runSink struct {
	hands           []runner.HandResult
	decisionsBySeat map[int]int
	forcedBySeat    map[int]int
}

func newRunSink() *runSink {
	return &runSink{
		decisionsBySeat: make(map[int]int),
		forcedBySeat:    make(map[int]int),
	}
}

func (s *runSink) HandComplete(r runner.HandResult) {
	s.hands = append(s.hands, r)
}

func (s *runSink) Decision(handNumber, seat int, trace llmdriver.DecisionTrace) {
	s.decisionsBySeat[seat]++
	if trace.FinalAction.Forced {
		s.forcedBySeat[seat]++
	}
}

// multiSink fans HandComplete/Decision callbacks out to every sink it
// wraps, so the Orchestrator's own bookkeeping runSink and a caller-supplied
// persisted-output sink can both see a run's callbacks without either
// knowing about the other.
type multiSink struct {
	sinks []runner.Sink
}

func (m multiSink) HandComplete(r runner.HandResult) {
	for _, s := range m.sinks {
		s.HandComplete(r)
	}
}

func (m multiSink) Decision(handNumber, seat int, trace llmdriver.DecisionTrace) {
	for _, s := range m.sinks {
		s.Decision(handNumber, seat, trace)
	}
}

// Run executes every configured run, up to Parallelism at a time, and
// returns the aggregated Summary. A fatal error in one run is recorded as a
// RunFailure rather than aborting the others, per §7's per-run isolation.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	if o.cfg.NumRuns < 1 {
		return Summary{}, fmt.Errorf("orchestrator: numRuns must be >= 1")
	}

	limit := o.cfg.Parallelism
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	o.log.Info().Int("num_runs", o.cfg.NumRuns).Int("parallelism", limit).Msg("starting benchmark")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var mu sync.Mutex
	results := make([]RunResult, o.cfg.NumRuns)
	failures := make([]RunFailure, 0)
	filled := make([]bool, o.cfg.NumRuns)

	for i := 0; i < o.cfg.NumRuns; i++ {
		runIndex := i
		g.Go(func() error {
			seed := o.cfg.SeedBase + int64(runIndex)
			result, err := o.runOne(gctx, runIndex, seed)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				o.log.Error().Err(err).Int("run", runIndex).Int64("seed", seed).Msg("run aborted")
				failures = append(failures, RunFailure{RunNumber: runIndex, Seed: seed, Err: err})
				return nil
			}
			o.log.Info().Int("run", runIndex).Int64("seed", seed).Int("hands", result.TotalHands).Msg("run complete")
			results[runIndex] = result
			filled[runIndex] = true
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	compact := make([]RunResult, 0, o.cfg.NumRuns)
	for i, ok := range filled {
		if ok {
			compact = append(compact, results[i])
		}
	}

	o.log.Info().Int("completed", len(compact)).Int("failed", len(failures)).Msg("benchmark finished")

	return Summary{
		Runs:       compact,
		AgentStats: aggregate(compact, o.cfg.Agents),
		Failures:   failures,
	}, nil
}

// runOne builds a fresh Driver, Manager, and Runner for one tournament and
// plays it to completion. Every run gets its own Manager (and therefore its
// own per-seat Agent Memory) even though the Driver/transport is shared,
// since the Driver carries no per-seat state itself.
func (o *Orchestrator) runOne(ctx context.Context, runIndex int, seed int64) (RunResult, error) {
	driver := llmdriver.New(o.transport, o.agentLog, nil)
	manager := agentmanager.New(driver, o.agentLog)

	players := make([]runner.PlayerConfig, len(o.cfg.Agents))
	nameBySeat := make(map[int]string, len(o.cfg.Agents))
	for i, a := range o.cfg.Agents {
		players[i] = runner.PlayerConfig{
			SeatNumber: a.SeatNumber,
			Name:       a.Name,
			Agent: agentmanager.AgentConfig{
				Model:    a.Model,
				Params:   a.Params,
				MaxTurns: a.MaxTurns,
			},
		}
		nameBySeat[a.SeatNumber] = a.Name
	}

	sink := newRunSink()
	var runSinks runner.Sink = sink
	if o.cfg.SinkFactory != nil {
		runSinks = multiSink{sinks: []runner.Sink{sink, o.cfg.SinkFactory(runIndex, seed)}}
	}
	r := runner.New(runner.Config{
		Seed:          seed,
		StartingStack: o.cfg.StartingStack,
		BlindSchedule: o.cfg.BlindSchedule,
		Players:       players,
	}, manager, o.agentLog, runSinks)

	res, err := r.Run(ctx)
	if err != nil {
		return RunResult{}, fmt.Errorf("orchestrator: run %d (seed %d): %w", runIndex, seed, err)
	}

	placements := make(map[string]int, len(res.Placements))
	for seat, place := range res.Placements {
		placements[nameBySeat[seat]] = place
	}

	decisionsByName := make(map[string]int, len(sink.decisionsBySeat))
	forcedByName := make(map[string]int, len(sink.forcedBySeat))
	for seat, n := range sink.decisionsBySeat {
		decisionsByName[nameBySeat[seat]] = n
	}
	for seat, n := range sink.forcedBySeat {
		forcedByName[nameBySeat[seat]] = n
	}

	return RunResult{
		RunNumber:       runIndex,
		Seed:            seed,
		TotalHands:      res.TotalHands,
		Placements:      placements,
		HandResults:     sink.hands,
		DecisionsByName: decisionsByName,
		ForcedByName:    forcedByName,
	}, nil
}

// aggregate folds every run's placements and per-seat decision counts into
// per-agent totals, keyed by the agent's stable name rather than seat number
// (a name's seat assignment is fixed for the whole benchmark here, but
// aggregate doesn't assume that - it looks the name up per run).
func aggregate(runs []RunResult, agents []AgentDef) map[string]AgentStats {
	stats := make(map[string]AgentStats, len(agents))
	for _, a := range agents {
		stats[a.Name] = AgentStats{Name: a.Name}
	}

	for _, run := range runs {
		for name, place := range run.Placements {
			s := stats[name]
			s.RunsPlayed++
			s.PlacementTotal += place
			if place == 1 {
				s.Wins++
			}
			s.Decisions += run.DecisionsByName[name]
			s.ForcedDecisions += run.ForcedByName[name]
			stats[name] = s
		}
	}

	return stats
}
