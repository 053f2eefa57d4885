package pokerengine

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/pokerbench/pokerbench/internal/actionalgebra"
)

// playToShowdown drives h through a fixed limp-everyone/check-down action
// sequence until it completes, returning nothing: every seat calls when
// facing a bet and checks otherwise, which is enough to reach Showdown
// without folding the hand short.
func playToShowdown(t *testing.T, h *Hand) {
	t.Helper()
	for !h.Complete {
		seat := h.ActionTo
		toCall := h.currentBet - h.Seats[seat].BetThisRound
		kind := actionalgebra.Check
		if toCall > 0 {
			kind = actionalgebra.Call
		}
		act(t, h, seat, kind, 0)
	}
}

// TestHandLogReplayReproducesPotProgression is the spec's testable
// property (§8): serialising a hand's action log and replaying it against
// a fresh engine seeded identically reproduces identical per-street pot
// values. The action log is the only thing that round-trips through
// JSON here - a fresh Hand still deals its own cards from the same seed,
// the way a tournament replay would reconstruct a hand from meta.json's
// seed plus hands/hand_NNN.json's action list.
func TestHandLogReplayReproducesPotProgression(t *testing.T) {
	t.Parallel()

	seats := []SeatConfig{
		{SeatNumber: 1, Name: "A", Stack: 200},
		{SeatNumber: 2, Name: "B", Stack: 200},
		{SeatNumber: 3, Name: "C", Stack: 200},
	}

	original := NewHand(rand.New(rand.NewSource(42)), seats, 0, 1, 2)
	playToShowdown(t, original)

	data, err := json.Marshal(original.Actions)
	if err != nil {
		t.Fatalf("marshal action log: %v", err)
	}
	var loggedActions []ActionRecord
	if err := json.Unmarshal(data, &loggedActions); err != nil {
		t.Fatalf("unmarshal action log: %v", err)
	}

	replay := NewHand(rand.New(rand.NewSource(42)), seats, 0, 1, 2)
	seatIdxBySeatNumber := make(map[int]int, len(replay.Seats))
	for i, s := range replay.Seats {
		seatIdxBySeatNumber[s.SeatNumber] = i
	}

	// Blinds are already posted by NewHand; replay only the actions an
	// agent actually submitted.
	var submitted []ActionRecord
	for _, rec := range loggedActions {
		if rec.Kind == ActionPostSB || rec.Kind == ActionPostBB {
			continue
		}
		submitted = append(submitted, rec)
	}

	for _, rec := range submitted {
		seatIdx := seatIdxBySeatNumber[rec.Seat]
		kind := actionalgebra.Kind(rec.Kind)
		if rec.Kind == ActionAllIn {
			// ActionAllIn is the engine's own classification, not a kind an
			// agent submits - re-derive the underlying call/bet/raise from
			// whether the seat already faced a bet.
			if replay.currentBet > replay.Seats[seatIdx].BetThisRound {
				kind = actionalgebra.Call
			} else {
				kind = actionalgebra.Bet
			}
		}
		raiseTo := 0
		if kind == actionalgebra.Bet || kind == actionalgebra.Raise {
			raiseTo = rec.Amount
		}
		a, err := replay.ValidateAndNormalize(seatIdx, kind, raiseTo)
		if err != nil {
			t.Fatalf("replay: normalize seat %d %v: %v", seatIdx, kind, err)
		}
		if err := replay.Apply(seatIdx, a); err != nil {
			t.Fatalf("replay: apply seat %d %v: %v", seatIdx, kind, err)
		}
	}

	var replayedSubmitted []ActionRecord
	for _, rec := range replay.Actions {
		if rec.Kind == ActionPostSB || rec.Kind == ActionPostBB {
			continue
		}
		replayedSubmitted = append(replayedSubmitted, rec)
	}

	if len(replayedSubmitted) != len(submitted) {
		t.Fatalf("replayed %d actions, original log had %d", len(replayedSubmitted), len(submitted))
	}
	for i, rec := range submitted {
		got := replayedSubmitted[i]
		if got.Street != rec.Street || got.PotAfter != rec.PotAfter {
			t.Errorf("action %d: replay pot/street = %d/%v, want %d/%v", i, got.PotAfter, got.Street, rec.PotAfter, rec.Street)
		}
	}
	if replay.Pot() != original.Pot() {
		t.Errorf("final pot = %d, want %d", replay.Pot(), original.Pot())
	}
}
