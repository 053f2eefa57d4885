// Package runner implements the Tournament Runner (§4.11): the main loop
// that deals hands until one seat remains, routing each decision through
// the Agent Manager and applying the result to the hand state machine.
package runner

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/charmbracelet/log"

	"github.com/pokerbench/pokerbench/internal/actionalgebra"
	"github.com/pokerbench/pokerbench/internal/agentmanager"
	"github.com/pokerbench/pokerbench/internal/agentmemory"
	"github.com/pokerbench/pokerbench/internal/blinds"
	"github.com/pokerbench/pokerbench/internal/llmdriver"
	"github.com/pokerbench/pokerbench/internal/observation"
	"github.com/pokerbench/pokerbench/internal/pokerengine"
	"github.com/pokerbench/pokerbench/internal/scorer"
	"github.com/pokerbench/pokerbench/poker"
)

// PlayerConfig is one seat's starting identity for a run.
type PlayerConfig struct {
	SeatNumber int
	Name       string
	Agent      agentmanager.AgentConfig
}

// Config bundles everything one tournament run needs besides its
// collaborators (Agent Manager, Scorer, Sink), matching §4.12's "each run
// constructs its own Deck, HandState, AgentManager, and AgentMemory
// instances."
type Config struct {
	Seed          int64
	StartingStack int
	BlindSchedule *blinds.Schedule
	Players       []PlayerConfig
}

// HandResult is everything an external logger needs to persist one
// completed hand (§6's `hands/hand_NNN.json`).
type HandResult struct {
	HandNumber  int
	BlindLevel  int
	ButtonSeat  int
	SmallBlind  int
	BigBlind    int
	Board       poker.Hand
	HoleCards   map[int]poker.Hand
	Actions     []pokerengine.ActionRecord
	Showdown    map[int]poker.Hand
	PotsAwarded map[int]int
	Pot         int
	Eliminated  []int
}

// Sink receives per-hand and per-decision records as a run progresses, the
// "external log collaborator" named throughout §4. A nil Sink is replaced
// by a no-op one.
type Sink interface {
	HandComplete(HandResult)
	Decision(handNumber, seat int, trace llmdriver.DecisionTrace)
}

type noopSink struct{}

func (noopSink) HandComplete(HandResult)                    {}
func (noopSink) Decision(int, int, llmdriver.DecisionTrace) {}

// Result is what a completed run reports to the orchestrator.
type Result struct {
	TotalHands int
	Placements map[int]int // seat number -> rank, 1 is the winner
}

// Runner drives one tournament from the first hand to the last. It owns no
// state that outlives Run - each call to Run builds its own RNG, Scorer and
// stack map from the Config given to New; the Manager given to New is
// shared by every call.
type Runner struct {
	cfg     Config
	manager *agentmanager.Manager
	logger  *log.Logger
	sink    Sink
}

// New creates a Runner for one tournament.
func New(cfg Config, manager *agentmanager.Manager, logger *log.Logger, sink Sink) *Runner {
	if sink == nil {
		sink = noopSink{}
	}
	return &Runner{
		cfg:     cfg,
		manager: manager,
		logger:  logger.WithPrefix("runner"),
		sink:    sink,
	}
}

// Run deals hands until the Scorer reports the tournament over, returning
// the final placement of every seat.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	rng := rand.New(rand.NewSource(r.cfg.Seed))

	allSeats := make([]int, len(r.cfg.Players))
	stacks := make(map[int]int, len(r.cfg.Players))
	names := make(map[int]string, len(r.cfg.Players))
	for i, p := range r.cfg.Players {
		allSeats[i] = p.SeatNumber
		stacks[p.SeatNumber] = r.cfg.StartingStack
		names[p.SeatNumber] = p.Name
		r.manager.Register(p.SeatNumber, p.Name, p.Agent)
	}

	sc := scorer.New(allSeats)
	buttonSeat := allSeats[0]

	handNumber := 0
	for !sc.Over() {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}

		handNumber++
		remaining := sc.Remaining()
		sb, bb := r.cfg.BlindSchedule.GetBlinds(handNumber)

		seatConfigs := make([]pokerengine.SeatConfig, len(remaining))
		buttonIdx := 0
		for i, seat := range remaining {
			seatConfigs[i] = pokerengine.SeatConfig{SeatNumber: seat, Name: names[seat], Stack: stacks[seat]}
			if seat == buttonSeat {
				buttonIdx = i
			}
		}

		hand := pokerengine.NewHand(rng, seatConfigs, buttonIdx, sb, bb, pokerengine.WithHandNumber(handNumber))

		preHandStack := make(map[int]int, len(remaining))
		for _, s := range hand.Seats {
			preHandStack[s.SeatNumber] = stacks[s.SeatNumber]
		}

		r.startHand(hand)

		lastStreet := hand.Street
		for !hand.Complete {
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			default:
			}

			seatIdx := hand.ActionTo
			if seatIdx < 0 {
				break
			}
			seatNumber := hand.Seats[seatIdx].SeatNumber

			snap := observation.Build(hand, seatIdx)
			action, trace, err := r.manager.GetAction(ctx, seatNumber, snap)
			if err != nil {
				return Result{}, fmt.Errorf("runner: hand %d seat %d: %w", handNumber, seatNumber, err)
			}
			r.sink.Decision(handNumber, seatNumber, trace)

			kind := toEngineKind(action)
			normalized, err := hand.ValidateAndNormalize(seatIdx, kind, action.RaiseTo)
			if err != nil {
				// The driver already validated against the legal set, but a
				// stale raiseTo (e.g. clamped against a smaller stack after
				// an earlier all-in elsewhere at the table) can still fail
				// normalization here - fall back the same way an illegal
				// action from the model would.
				normalized = actionalgebra.Action{Kind: actionalgebra.Check}
			}
			if _, err := hand.ApplyWithFallback(seatIdx, normalized); err != nil {
				return Result{}, fmt.Errorf("runner: hand %d seat %d: fatal engine error: %w", handNumber, seatNumber, err)
			}

			if len(hand.Actions) > 0 {
				last := hand.Actions[len(hand.Actions)-1]
				r.manager.RecordAction(last.Street, last.Seat, last.Kind, last.Amount)
			}

			if hand.Street != lastStreet {
				r.manager.UpdateCommunity(hand.Board)
				lastStreet = hand.Street
			}
		}

		result := r.finishHand(hand, preHandStack, stacks)
		result.BlindLevel = r.cfg.BlindSchedule.GetLevel(handNumber)
		result.SmallBlind = sb
		result.BigBlind = bb

		var busted []int
		for _, seat := range remaining {
			if stacks[seat] == 0 {
				busted = append(busted, seat)
			}
		}
		result.Eliminated = busted
		r.sink.HandComplete(result)

		if len(busted) > 0 {
			sc.Eliminate(handNumber, busted)
			for _, seat := range busted {
				r.manager.Eliminate(seat)
			}
		}

		buttonSeat = nextButton(allSeats, buttonSeat, sc)
	}

	return Result{TotalHands: handNumber, Placements: sc.Placements()}, nil
}

// startHand seeds every active seat's memory with its own hole cards and
// position for the hand about to be played.
func (r *Runner) startHand(hand *pokerengine.Hand) {
	holeCards := make(map[int]poker.Hand, len(hand.Seats))
	positions := make(map[int]string, len(hand.Seats))

	activeIdx := make([]int, len(hand.Seats))
	for i := range hand.Seats {
		activeIdx[i] = i
	}
	for i, s := range hand.Seats {
		holeCards[s.SeatNumber] = s.HoleCards
		positions[s.SeatNumber] = observation.PositionFor(i, hand.ButtonIndex, activeIdx)
	}

	r.manager.StartHand(hand.HandNumber, holeCards, positions)
}

// finishHand reveals showdown hands, closes the hand in every seat's
// memory with its own outcome, updates stacks in place, and returns the
// record for the external hand logger.
func (r *Runner) finishHand(hand *pokerengine.Hand, preHandStack, stacks map[int]int) HandResult {
	showdown := make(map[int]poker.Hand)
	if hand.Street == pokerengine.Showdown {
		for _, s := range hand.Seats {
			if !s.HasFolded {
				showdown[s.SeatNumber] = s.HoleCards
				r.manager.RecordShowdown(s.SeatNumber, s.HoleCards)
			}
		}
	}

	// hand.PotsAwarded is keyed by seat index within this hand's Seats
	// slice, not by the stable seat number - translate once here so
	// everything downstream (memory, the hand log) deals in seat numbers.
	potsAwardedBySeat := make(map[int]int, len(hand.PotsAwarded))
	winners := 0
	for idx, amt := range hand.PotsAwarded {
		if amt > 0 {
			winners++
		}
		potsAwardedBySeat[hand.Seats[idx].SeatNumber] = amt
	}

	results := make(map[int]agentmanager.EndResult, len(hand.Seats))
	for _, s := range hand.Seats {
		awarded := potsAwardedBySeat[s.SeatNumber]
		var outcome agentmemory.Outcome
		switch {
		case s.HasFolded:
			outcome = agentmemory.Folded
		case awarded > 0 && winners == 1:
			outcome = agentmemory.Won
		case awarded > 0:
			outcome = agentmemory.Split
		default:
			outcome = agentmemory.Lost
		}

		stacks[s.SeatNumber] = s.Stack
		results[s.SeatNumber] = agentmanager.EndResult{
			Outcome:    outcome,
			ChipsWon:   s.Stack - preHandStack[s.SeatNumber],
			Pot:        hand.Pot(),
			FinalStack: s.Stack,
		}
	}
	r.manager.EndHand(results)

	holeCards := make(map[int]poker.Hand, len(hand.Seats))
	for _, s := range hand.Seats {
		holeCards[s.SeatNumber] = s.HoleCards
	}

	return HandResult{
		HandNumber:  hand.HandNumber,
		ButtonSeat:  hand.Seats[hand.ButtonIndex].SeatNumber,
		Board:       hand.Board,
		HoleCards:   holeCards,
		Actions:     append([]pokerengine.ActionRecord(nil), hand.Actions...),
		Showdown:    showdown,
		PotsAwarded: potsAwardedBySeat,
		Pot:         hand.Pot(),
	}
}

// toEngineKind maps a driver's agent-vocabulary decision onto the
// actionalgebra.Kind ValidateAndNormalize expects - the engine itself
// still performs the fold->check and raise->bet normalization (§4.4), the
// driver's validation only rules out actions absent from the legal set
// entirely.
func toEngineKind(a llmdriver.AgentAction) actionalgebra.Kind {
	switch a.Kind {
	case llmdriver.ActionFold:
		return actionalgebra.Fold
	case llmdriver.ActionCheck:
		return actionalgebra.Check
	case llmdriver.ActionCall:
		return actionalgebra.Call
	default:
		return actionalgebra.Raise
	}
}

// nextButton finds the next seat clockwise of current that is still in the
// tournament, per the Open Question decision recorded in DESIGN.md
// (clockwise-of-remaining rather than a dead button).
func nextButton(allSeats []int, current int, sc *scorer.Scorer) int {
	stillIn := make(map[int]bool)
	for _, seat := range sc.Remaining() {
		stillIn[seat] = true
	}

	pos := 0
	for i, seat := range allSeats {
		if seat == current {
			pos = i
			break
		}
	}
	n := len(allSeats)
	for i := 1; i <= n; i++ {
		candidate := allSeats[(pos+i)%n]
		if stillIn[candidate] {
			return candidate
		}
	}
	return current
}
