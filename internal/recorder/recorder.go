// Package recorder writes the persisted outputs named in §6: a run's
// meta.json, one hands/hand_NNN.json and agents/hand_NNN.json per hand,
// and (via WriteResults/WriteSummary) a tournament's results.json and a
// benchmark's cross-run summary.json. It is the "external logger" the
// Tournament Runner and Orchestrator packages only ever address through
// runner.Sink - neither of them knows JSON gets written at all.
//
// Every write goes through fileutil.WriteFileAtomic, the teacher's own
// write-then-rename helper, so a crash mid-run never leaves a reader
// looking at a half-written hand log.
package recorder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pokerbench/pokerbench/internal/fileutil"
	"github.com/pokerbench/pokerbench/internal/llmdriver"
	"github.com/pokerbench/pokerbench/internal/orchestrator"
	"github.com/pokerbench/pokerbench/internal/pokerengine"
	"github.com/pokerbench/pokerbench/internal/runner"
	"github.com/pokerbench/pokerbench/poker"
)

// PlayerEntry is one seat's identity as recorded in every hand log's
// `players[]` array.
type PlayerEntry struct {
	Seat int    `json:"seat"`
	Name string `json:"name"`
}

// BlindLevelMeta is one blind_level entry as recorded in meta.json.
type BlindLevelMeta struct {
	Hands int `json:"hands,omitempty"`
	SB    int `json:"sb"`
	BB    int `json:"bb"`
}

// RunMeta is §6's `meta.json` shape.
type RunMeta struct {
	Seed          int64            `json:"seed"`
	NumPlayers    int              `json:"numPlayers"`
	StartingStack int              `json:"startingStack"`
	BlindSchedule []BlindLevelMeta `json:"blindSchedule"`
}

// RunRecorder implements runner.Sink, writing one run's meta.json,
// hands/hand_NNN.json and agents/hand_NNN.json files under dir.
type RunRecorder struct {
	dir     string
	players []PlayerEntry

	// pending accumulates one hand's decisions as they arrive via
	// Decision, keyed by arrival order within the hand (a seat may decide
	// several times per hand; each entry carries its seat), and is flushed into
	// agents/hand_NNN.json the moment HandComplete fires for that hand.
	pending map[int]decisionEntry
}

type decisionEntry struct {
	Seat  int
	Name  string
	Trace llmdriver.DecisionTrace
}

// NewRunRecorder creates dir/hands and dir/agents and writes dir/meta.json.
func NewRunRecorder(dir string, meta RunMeta, players []PlayerEntry) (*RunRecorder, error) {
	for _, sub := range []string{"hands", "agents"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("recorder: creating %s: %w", sub, err)
		}
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("recorder: marshaling meta.json: %w", err)
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(dir, "meta.json"), data, 0o644); err != nil {
		return nil, fmt.Errorf("recorder: writing meta.json: %w", err)
	}

	return &RunRecorder{dir: dir, players: players, pending: make(map[int]decisionEntry)}, nil
}

// Decision implements runner.Sink: it buffers the decision until the hand
// it belongs to completes.
func (r *RunRecorder) Decision(handNumber, seat int, trace llmdriver.DecisionTrace) {
	r.pending[len(r.pending)] = decisionEntry{Seat: seat, Name: trace.SeatName, Trace: trace}
}

// HandComplete implements runner.Sink: it writes both the public hand log
// and the private per-seat decision log for the hand that just finished,
// then clears the buffered decisions for the next hand.
func (r *RunRecorder) HandComplete(result runner.HandResult) {
	if err := r.writeHandLog(result); err != nil {
		fmt.Fprintf(os.Stderr, "recorder: hand %d: %v\n", result.HandNumber, err)
	}
	if err := r.writeAgentLog(result.HandNumber); err != nil {
		fmt.Fprintf(os.Stderr, "recorder: hand %d: %v\n", result.HandNumber, err)
	}
	r.pending = make(map[int]decisionEntry)
}

type actionDTO struct {
	Street   string                  `json:"street"`
	Seat     int                     `json:"seat"`
	Action   pokerengine.ActionKind  `json:"action"`
	Amount   int                     `json:"amount"`
	PotAfter int                     `json:"potAfter"`
}

type handLogDTO struct {
	HandNumber       int              `json:"handNumber"`
	BlindLevel       int              `json:"blindLevel"`
	ButtonSeat       int              `json:"buttonSeat"`
	Blinds           blindsDTO        `json:"blinds"`
	Players          []PlayerEntry    `json:"players"`
	HoleCards        map[int][]string `json:"holeCards"`
	HoleCardCategory map[int]string   `json:"holeCardCategory,omitempty"`
	CommunityCards   []string         `json:"communityCards"`
	Actions          []actionDTO      `json:"actions"`
	Showdown         map[int][]string `json:"showdown,omitempty"`
	Winners          []int            `json:"winners"`
	Pot              int              `json:"pot"`
	PotsAwarded      map[int]int      `json:"potsAwarded"`
	Eliminated       []int            `json:"eliminated,omitempty"`
}

type blindsDTO struct {
	SB int `json:"sb"`
	BB int `json:"bb"`
}

func cardStrings(h poker.Hand) []string {
	cards := h.Cards()
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}

func (r *RunRecorder) writeHandLog(result runner.HandResult) error {
	holeCards := make(map[int][]string, len(result.HoleCards))
	holeCardCategory := make(map[int]string, len(result.HoleCards))
	for seat, h := range result.HoleCards {
		cards := h.Cards()
		holeCards[seat] = cardStrings(h)
		if len(cards) == 2 {
			holeCardCategory[seat] = string(poker.CategorizeHoleCards(cards[0], cards[1]))
		}
	}

	var showdown map[int][]string
	if len(result.Showdown) > 0 {
		showdown = make(map[int][]string, len(result.Showdown))
		for seat, h := range result.Showdown {
			showdown[seat] = cardStrings(h)
		}
	}

	winners := make([]int, 0, len(result.PotsAwarded))
	for seat, amt := range result.PotsAwarded {
		if amt > 0 {
			winners = append(winners, seat)
		}
	}

	actions := make([]actionDTO, len(result.Actions))
	for i, a := range result.Actions {
		actions[i] = actionDTO{
			Street:   a.Street.String(),
			Seat:     a.Seat,
			Action:   a.Kind,
			Amount:   a.Amount,
			PotAfter: a.PotAfter,
		}
	}

	dto := handLogDTO{
		HandNumber:       result.HandNumber,
		BlindLevel:       result.BlindLevel,
		ButtonSeat:       result.ButtonSeat,
		Blinds:           blindsDTO{SB: result.SmallBlind, BB: result.BigBlind},
		Players:          r.players,
		HoleCards:        holeCards,
		HoleCardCategory: holeCardCategory,
		CommunityCards:   cardStrings(result.Board),
		Actions:          actions,
		Showdown:         showdown,
		Winners:          winners,
		Pot:              result.Pot,
		PotsAwarded:      result.PotsAwarded,
		Eliminated:       result.Eliminated,
	}

	data, err := json.MarshalIndent(dto, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling hand log: %w", err)
	}
	path := filepath.Join(r.dir, "hands", fmt.Sprintf("hand_%03d.json", result.HandNumber))
	return fileutil.WriteFileAtomic(path, data, 0o644)
}

type decisionDTO struct {
	Seat         int                        `json:"seat"`
	SeatName     string                     `json:"seatName"`
	Messages     []interface{}              `json:"messages"`
	ToolCalls    []interface{}              `json:"toolCalls"`
	RawResponses []interface{}              `json:"rawResponses"`
	FinalAction  llmdriver.AgentAction      `json:"finalAction"`
	ThinkingMs   float64                    `json:"thinkingMs"`
	Retries      int                        `json:"retries"`
	Forced       bool                       `json:"forced"`
	Error        string                     `json:"error,omitempty"`
}

func (r *RunRecorder) writeAgentLog(handNumber int) error {
	if len(r.pending) == 0 {
		return nil
	}

	decisions := make([]decisionDTO, 0, len(r.pending))
	for _, entry := range r.pending {
		t := entry.Trace
		decisions = append(decisions, decisionDTO{
			Seat:         entry.Seat,
			SeatName:     entry.Name,
			Messages:     toAnySlice(t.Messages),
			ToolCalls:    toAnySlice(t.ToolCalls),
			RawResponses: toAnySlice(t.RawResponses),
			FinalAction:  t.FinalAction,
			ThinkingMs:   t.ElapsedMs,
			Retries:      t.Retries,
			Forced:       t.FinalAction.Forced,
			Error:        t.Error,
		})
	}

	data, err := json.MarshalIndent(struct {
		HandNumber int           `json:"handNumber"`
		Decisions  []decisionDTO `json:"decisions"`
	}{HandNumber: handNumber, Decisions: decisions}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling agent log: %w", err)
	}
	path := filepath.Join(r.dir, "agents", fmt.Sprintf("hand_%03d.json", handNumber))
	return fileutil.WriteFileAtomic(path, data, 0o644)
}

// toAnySlice lets json.MarshalIndent render a typed slice the same way
// regardless of element type, so writeAgentLog doesn't need three near-
// identical marshal branches for Messages/ToolCalls/RawResponses.
func toAnySlice[T any](items []T) []interface{} {
	out := make([]interface{}, len(items))
	for i, v := range items {
		out[i] = v
	}
	return out
}

type runAgentStatDTO struct {
	Decisions       int `json:"decisions"`
	ForcedDecisions int `json:"forcedDecisions"`
}

type resultsDTO struct {
	RunNumber  int                        `json:"runNumber"`
	Seed       int64                      `json:"seed"`
	TotalHands int                        `json:"totalHands"`
	Placements map[string]int             `json:"placements"`
	AgentStats map[string]runAgentStatDTO `json:"agentStats"`
}

// WriteResults writes one run's tournament_KKK/results.json under dir,
// per §6. It deliberately re-shapes orchestrator.RunResult rather than
// marshaling it directly: the spec's results.json names four fields, none
// of them the full per-hand HandResults the orchestrator also carries
// (those already live in this run's hands/ and agents/ directories via
// RunRecorder).
func WriteResults(dir string, result orchestrator.RunResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("recorder: creating %s: %w", dir, err)
	}

	agentStats := make(map[string]runAgentStatDTO, len(result.DecisionsByName))
	for name, n := range result.DecisionsByName {
		agentStats[name] = runAgentStatDTO{Decisions: n, ForcedDecisions: result.ForcedByName[name]}
	}

	dto := resultsDTO{
		RunNumber:  result.RunNumber,
		Seed:       result.Seed,
		TotalHands: result.TotalHands,
		Placements: result.Placements,
		AgentStats: agentStats,
	}

	data, err := json.MarshalIndent(dto, "", "  ")
	if err != nil {
		return fmt.Errorf("recorder: marshaling results.json: %w", err)
	}
	return fileutil.WriteFileAtomic(filepath.Join(dir, "results.json"), data, 0o644)
}

// WriteSummary writes the cross-run summary.json under dir, per §6: the
// orchestrator's own AgentStats (already a cross-run aggregate) plus a
// compact per-run index, omitting each run's full HandResults for the
// same reason WriteResults does.
func WriteSummary(dir string, summary orchestrator.Summary) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("recorder: creating %s: %w", dir, err)
	}

	type runEntryDTO struct {
		RunNumber  int            `json:"runNumber"`
		Seed       int64          `json:"seed"`
		TotalHands int            `json:"totalHands"`
		Placements map[string]int `json:"placements"`
	}
	runs := make([]runEntryDTO, len(summary.Runs))
	for i, r := range summary.Runs {
		runs[i] = runEntryDTO{RunNumber: r.RunNumber, Seed: r.Seed, TotalHands: r.TotalHands, Placements: r.Placements}
	}

	type failureDTO struct {
		RunNumber int    `json:"runNumber"`
		Seed      int64  `json:"seed"`
		Error     string `json:"error"`
	}
	failures := make([]failureDTO, len(summary.Failures))
	for i, f := range summary.Failures {
		failures[i] = failureDTO{RunNumber: f.RunNumber, Seed: f.Seed, Error: f.Err.Error()}
	}

	dto := struct {
		Runs       []runEntryDTO                 `json:"runs"`
		AgentStats map[string]orchestrator.AgentStats `json:"agentStats"`
		Failures   []failureDTO                  `json:"failures"`
	}{Runs: runs, AgentStats: summary.AgentStats, Failures: failures}

	data, err := json.MarshalIndent(dto, "", "  ")
	if err != nil {
		return fmt.Errorf("recorder: marshaling summary.json: %w", err)
	}
	return fileutil.WriteFileAtomic(filepath.Join(dir, "summary.json"), data, 0o644)
}
