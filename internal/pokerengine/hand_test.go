package pokerengine

import (
	"math/rand"
	"testing"

	"github.com/pokerbench/pokerbench/internal/actionalgebra"
)

func twoSeats() []SeatConfig {
	return []SeatConfig{
		{SeatNumber: 1, Name: "Alice", Stack: 100},
		{SeatNumber: 2, Name: "Bob", Stack: 100},
	}
}

func act(t *testing.T, h *Hand, seatIdx int, kind actionalgebra.Kind, raiseTo int) {
	t.Helper()
	a, err := h.ValidateAndNormalize(seatIdx, kind, raiseTo)
	if err != nil {
		t.Fatalf("seat %d: normalize/validate %v: %v", seatIdx, kind, err)
	}
	if err := h.Apply(seatIdx, a); err != nil {
		t.Fatalf("seat %d: apply %v: %v", seatIdx, kind, err)
	}
}

// TestHeadsUpBlindsAndFirstStreet is the spec's S1 scenario.
func TestHeadsUpBlindsAndFirstStreet(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))
	h := NewHand(rng, twoSeats(), 0, 1, 2)

	if h.Seats[0].BetThisRound != 1 || h.Seats[0].Stack != 99 {
		t.Errorf("button/SB: got bet=%d stack=%d, want bet=1 stack=99", h.Seats[0].BetThisRound, h.Seats[0].Stack)
	}
	if h.Seats[1].BetThisRound != 2 || h.Seats[1].Stack != 98 {
		t.Errorf("BB: got bet=%d stack=%d, want bet=2 stack=98", h.Seats[1].BetThisRound, h.Seats[1].Stack)
	}
	if h.ActionTo != 0 {
		t.Fatalf("ActionTo = %d, want 0 (button acts first heads-up)", h.ActionTo)
	}

	act(t, h, 0, actionalgebra.Call, 0)
	act(t, h, 1, actionalgebra.Check, 0)

	if h.Street != Flop {
		t.Fatalf("street = %v, want Flop", h.Street)
	}
	if h.Pot() != 4 {
		t.Errorf("pot = %d, want 4", h.Pot())
	}
	if h.currentBet != 0 {
		t.Errorf("currentBet = %d, want 0 on a new street", h.currentBet)
	}
}

// TestThreePlayersLimpThenBBOption is the spec's S2 scenario.
func TestThreePlayersLimpThenBBOption(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(2))
	seats := []SeatConfig{
		{SeatNumber: 1, Name: "A", Stack: 200},
		{SeatNumber: 2, Name: "B", Stack: 200},
		{SeatNumber: 3, Name: "C", Stack: 200},
	}
	h := NewHand(rng, seats, 0, 1, 2)

	// UTG (button, 3-handed) limps, SB limps, BB checks to close.
	for h.Street == Preflop {
		seat := h.ActionTo
		toCall := h.currentBet - h.Seats[seat].BetThisRound
		if toCall > 0 {
			act(t, h, seat, actionalgebra.Call, 0)
		} else {
			act(t, h, seat, actionalgebra.Check, 0)
		}
	}

	if h.Street != Flop {
		t.Fatalf("street = %v, want Flop", h.Street)
	}
	if got, want := h.Seats[h.ActionTo].SeatNumber, h.Seats[h.sbIndex()].SeatNumber; got != want {
		t.Errorf("first to act postflop = seat %d, want SB (seat %d)", got, want)
	}
}

// TestThreeBetReopensAction is the spec's S3 scenario.
func TestThreeBetReopensAction(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(3))
	seats := []SeatConfig{
		{SeatNumber: 1, Name: "Button", Stack: 200},
		{SeatNumber: 2, Name: "SB", Stack: 200},
		{SeatNumber: 3, Name: "BB", Stack: 200},
		{SeatNumber: 4, Name: "UTG", Stack: 200},
	}
	h := NewHand(rng, seats, 0, 1, 2)

	if h.ActionTo != 3 {
		t.Fatalf("first to act = %d, want 3 (UTG)", h.ActionTo)
	}
	act(t, h, 3, actionalgebra.Raise, 6) // UTG raises to 6

	if h.ActionTo != 0 {
		t.Fatalf("action = %d, want 0 (button)", h.ActionTo)
	}
	act(t, h, 0, actionalgebra.Raise, 18) // button 3-bets to 18

	if h.Seats[3].HasActed {
		t.Errorf("UTG hasActed should be reset to false by the full 3-bet")
	}

	act(t, h, 1, actionalgebra.Fold, 0) // SB folds
	act(t, h, 2, actionalgebra.Fold, 0) // BB folds

	if h.ActionTo != 3 {
		t.Fatalf("action should return to UTG (seat index 3), got %d", h.ActionTo)
	}
}

// TestAllInForLessDoesNotReopenAction is the spec's S4 scenario.
func TestAllInForLessDoesNotReopenAction(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(4))
	seats := []SeatConfig{
		{SeatNumber: 1, Name: "Button", Stack: 200},
		{SeatNumber: 2, Name: "SB", Stack: 200},
		{SeatNumber: 3, Name: "BB", Stack: 15},
	}
	h := NewHand(rng, seats, 0, 1, 2)

	if h.ActionTo != 0 {
		t.Fatalf("first to act = %d, want 0 (button, 3-handed UTG)", h.ActionTo)
	}
	act(t, h, 0, actionalgebra.Raise, 10) // button raises to 10, a full raise

	if !h.Seats[0].HasActed {
		t.Fatalf("button should be marked acted after its own raise")
	}

	act(t, h, 1, actionalgebra.Fold, 0) // SB folds

	// BB (stack 15, already posted 2) can only go to 15 total - an all-in
	// for less than the minimum raise-to.
	a, err := h.ValidateAndNormalize(2, actionalgebra.Raise, 1000)
	if err != nil {
		t.Fatalf("normalize/validate: %v", err)
	}
	if !a.IsAllIn || a.Amount != 15 {
		t.Fatalf("got action %+v, want all-in raise to 15", a)
	}
	if err := h.Apply(2, a); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if !h.Seats[0].HasActed {
		t.Errorf("button's hasActed must NOT be reset by an all-in-for-less (§8 invariant)")
	}
	if h.ActionTo != 0 {
		t.Fatalf("action should be back on the button for a call/fold decision, got %d", h.ActionTo)
	}
}

// TestChipConservationAcrossAFullHand exercises §8's chip conservation
// invariant end to end: starting stacks equal ending stacks plus nothing
// lost or gained.
func TestChipConservationAcrossAFullHand(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(5))
	seats := []SeatConfig{
		{SeatNumber: 1, Name: "A", Stack: 100},
		{SeatNumber: 2, Name: "B", Stack: 100},
		{SeatNumber: 3, Name: "C", Stack: 100},
	}
	startTotal := 0
	for _, s := range seats {
		startTotal += s.Stack
	}

	h := NewHand(rng, seats, 0, 1, 2)

	steps := 0
	for !h.IsComplete() && steps < 100 {
		steps++
		seat := h.ActionTo
		if seat < 0 {
			break
		}
		toCall := h.currentBet - h.Seats[seat].BetThisRound
		var a actionalgebra.Action
		var err error
		if toCall > 0 {
			a, err = h.ValidateAndNormalize(seat, actionalgebra.Call, 0)
		} else {
			a, err = h.ValidateAndNormalize(seat, actionalgebra.Check, 0)
		}
		if err != nil {
			t.Fatalf("step %d: %v", steps, err)
		}
		if err := h.Apply(seat, a); err != nil {
			t.Fatalf("step %d: apply: %v", steps, err)
		}
	}

	if !h.IsComplete() {
		t.Fatalf("hand did not complete within %d steps", steps)
	}
	if h.FatalErr != nil {
		t.Fatalf("fatal engine error: %v", h.FatalErr)
	}

	endTotal := 0
	for _, s := range h.Seats {
		endTotal += s.Stack
	}
	if endTotal != startTotal {
		t.Errorf("chip conservation violated: start=%d end=%d", startTotal, endTotal)
	}
}

func TestLegalActionsNeverOfferBothCheckAndCall(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(6))
	h := NewHand(rng, twoSeats(), 0, 1, 2)

	legal := h.LegalActions()
	hasCheck, hasCall := false, false
	for _, k := range legal {
		if k == actionalgebra.Check {
			hasCheck = true
		}
		if k == actionalgebra.Call {
			hasCall = true
		}
	}
	if hasCheck && hasCall {
		t.Errorf("legal action set contains both check and call: %v", legal)
	}
}
