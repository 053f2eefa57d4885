package actionalgebra

import "testing"

func TestLegalActionsUnopenedPot(t *testing.T) {
	t.Parallel()

	p := PlayerState{Stack: 980, BetThisRound: 20}
	b := BettingState{CurrentBet: 20, MinRaise: 20, BigBlind: 20}

	legal := LegalActions(p, b)
	want := map[Kind]bool{Check: true, Raise: true}
	assertKindSet(t, legal, want)
}

func TestLegalActionsFacingBet(t *testing.T) {
	t.Parallel()

	p := PlayerState{Stack: 980, BetThisRound: 0}
	b := BettingState{CurrentBet: 20, MinRaise: 20, BigBlind: 20}

	legal := LegalActions(p, b)
	want := map[Kind]bool{Fold: true, Call: true, Raise: true}
	assertKindSet(t, legal, want)
}

func TestLegalActionsNoBetYetOffersBetNotRaise(t *testing.T) {
	t.Parallel()

	p := PlayerState{Stack: 1000}
	b := BettingState{CurrentBet: 0, MinRaise: 20, BigBlind: 20}

	legal := LegalActions(p, b)
	want := map[Kind]bool{Check: true, Bet: true}
	assertKindSet(t, legal, want)
}

func TestLegalActionsShortStackCannotOpen(t *testing.T) {
	t.Parallel()

	p := PlayerState{Stack: 10}
	b := BettingState{CurrentBet: 0, MinRaise: 20, BigBlind: 20}

	legal := LegalActions(p, b)
	want := map[Kind]bool{Check: true}
	assertKindSet(t, legal, want)
}

func TestLegalActionsFoldedOrAllInHasNone(t *testing.T) {
	t.Parallel()

	b := BettingState{CurrentBet: 20, MinRaise: 20, BigBlind: 20}

	if got := LegalActions(PlayerState{HasFolded: true, Stack: 500}, b); got != nil {
		t.Errorf("folded seat: got %v, want nil", got)
	}
	if got := LegalActions(PlayerState{IsAllIn: true, Stack: 0}, b); got != nil {
		t.Errorf("all-in seat: got %v, want nil", got)
	}
}

func TestNormalizeFoldWithNoBetBecomesCheck(t *testing.T) {
	t.Parallel()

	p := PlayerState{Stack: 1000}
	b := BettingState{CurrentBet: 0, MinRaise: 20, BigBlind: 20}

	a, err := Normalize(Fold, 0, p, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Kind != Check {
		t.Errorf("got kind %v, want Check", a.Kind)
	}
}

func TestNormalizeRaiseWithNoCurrentBetBecomesBet(t *testing.T) {
	t.Parallel()

	p := PlayerState{Stack: 1000}
	b := BettingState{CurrentBet: 0, MinRaise: 20, BigBlind: 20}

	a, err := Normalize(Raise, 100, p, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Kind != Bet {
		t.Errorf("got kind %v, want Bet", a.Kind)
	}
	if a.Amount != 100 {
		t.Errorf("got amount %d, want 100", a.Amount)
	}
}

func TestNormalizeClampsRaiseBelowMinimum(t *testing.T) {
	t.Parallel()

	p := PlayerState{Stack: 1000, BetThisRound: 20}
	b := BettingState{CurrentBet: 20, MinRaise: 20, BigBlind: 20}

	a, err := Normalize(Raise, 25, p, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Amount != 40 {
		t.Errorf("got amount %d, want clamped to min raise-to 40", a.Amount)
	}
}

func TestNormalizeClampsRaiseAboveStack(t *testing.T) {
	t.Parallel()

	p := PlayerState{Stack: 50, BetThisRound: 20}
	b := BettingState{CurrentBet: 20, MinRaise: 20, BigBlind: 20}

	a, err := Normalize(Raise, 10000, p, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Amount != 70 {
		t.Errorf("got amount %d, want clamped to stack+betThisRound 70", a.Amount)
	}
	if !a.IsAllIn {
		t.Errorf("expected IsAllIn true when clamped to full stack")
	}
}

func TestValidateAllInForLessBelowMinimumIsLegal(t *testing.T) {
	t.Parallel()

	p := PlayerState{Stack: 15, BetThisRound: 20}
	b := BettingState{CurrentBet: 20, MinRaise: 20, BigBlind: 20}

	a := Action{Kind: Raise, Amount: 35, IsAllIn: true}
	if err := Validate(a, p, b); err != nil {
		t.Errorf("unexpected error for all-in-for-less: %v", err)
	}
}

func TestValidateShortRaiseNotAllInIsIllegal(t *testing.T) {
	t.Parallel()

	p := PlayerState{Stack: 1000, BetThisRound: 20}
	b := BettingState{CurrentBet: 20, MinRaise: 20, BigBlind: 20}

	a := Action{Kind: Raise, Amount: 30}
	if err := Validate(a, p, b); err == nil {
		t.Errorf("expected error for under-minimum raise with chips behind")
	}
}

func TestIsFullRaise(t *testing.T) {
	t.Parallel()

	if !IsFullRaise(20, 40, 20) {
		t.Errorf("raise to 40 from 20 with min raise 20 should be a full raise")
	}
	if IsFullRaise(20, 35, 20) {
		t.Errorf("raise to 35 from 20 with min raise 20 should not be a full raise")
	}
}

func assertKindSet(t *testing.T, got []Kind, want map[Kind]bool) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want keys of %v", got, want)
	}
	for _, k := range got {
		if !want[k] {
			t.Errorf("unexpected kind %v in %v", k, got)
		}
	}
}
