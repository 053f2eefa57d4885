package orchestrator

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/rs/zerolog"

	"github.com/pokerbench/pokerbench/internal/blinds"
	"github.com/pokerbench/pokerbench/internal/modeltransport"
)

type alwaysCallTransport struct{}

func (alwaysCallTransport) Call(ctx context.Context, req modeltransport.Request) (modeltransport.Response, error) {
	return modeltransport.Response{Content: `{"action":"call"}`}, nil
}

func testSchedule(t *testing.T) *blinds.Schedule {
	t.Helper()
	sched, err := blinds.NewSchedule([]blinds.Level{{Level: 1, Hands: 0, SB: 10, BB: 20}})
	if err != nil {
		t.Fatalf("blinds.NewSchedule: %v", err)
	}
	return sched
}

func TestRunAggregatesPlacementsAcrossRuns(t *testing.T) {
	t.Parallel()
	agentLog := log.New(io.Discard)
	runLog := zerolog.New(io.Discard)

	cfg := Config{
		NumRuns:       4,
		SeedBase:      1000,
		StartingStack: 200,
		BlindSchedule: testSchedule(t),
		Agents: []AgentDef{
			{SeatNumber: 0, Name: "alice", Model: "test/model"},
			{SeatNumber: 1, Name: "bob", Model: "test/model"},
			{SeatNumber: 2, Name: "carol", Model: "test/model"},
		},
		Parallelism: 2,
	}

	o := New(cfg, alwaysCallTransport{}, runLog, agentLog)
	summary, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(summary.Runs) != cfg.NumRuns {
		t.Fatalf("len(Runs) = %d, want %d", len(summary.Runs), cfg.NumRuns)
	}
	if len(summary.Failures) != 0 {
		t.Fatalf("unexpected failures: %v", summary.Failures)
	}

	if len(summary.AgentStats) != len(cfg.Agents) {
		t.Fatalf("len(AgentStats) = %d, want %d", len(summary.AgentStats), len(cfg.Agents))
	}

	totalWins := 0
	for _, a := range cfg.Agents {
		s, ok := summary.AgentStats[a.Name]
		if !ok {
			t.Fatalf("missing AgentStats for %q", a.Name)
		}
		if s.RunsPlayed != cfg.NumRuns {
			t.Errorf("%s: RunsPlayed = %d, want %d", a.Name, s.RunsPlayed, cfg.NumRuns)
		}
		totalWins += s.Wins
	}
	if totalWins != cfg.NumRuns {
		t.Errorf("total wins across agents = %d, want %d (one winner per run)", totalWins, cfg.NumRuns)
	}

	for _, run := range summary.Runs {
		if run.Seed != cfg.SeedBase+int64(run.RunNumber) {
			t.Errorf("run %d: seed = %d, want seedBase + runNumber", run.RunNumber, run.Seed)
		}
	}
}

func TestRunRejectsZeroRuns(t *testing.T) {
	t.Parallel()
	agentLog := log.New(io.Discard)
	runLog := zerolog.New(io.Discard)
	o := New(Config{NumRuns: 0}, alwaysCallTransport{}, runLog, agentLog)
	if _, err := o.Run(context.Background()); err == nil {
		t.Fatal("expected error for NumRuns = 0")
	}
}
