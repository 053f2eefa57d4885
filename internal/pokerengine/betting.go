package pokerengine

import "github.com/pokerbench/pokerbench/internal/actionalgebra"

// playerState projects a Seat into the shape actionalgebra needs.
func (s *Seat) playerState() actionalgebra.PlayerState {
	return actionalgebra.PlayerState{
		Stack:        s.Stack,
		BetThisRound: s.BetThisRound,
		HasActed:     s.HasActed,
		IsAllIn:      s.IsAllIn,
		HasFolded:    s.HasFolded,
	}
}

// bettingState projects the Hand's current street state into the shape
// actionalgebra needs.
func (h *Hand) bettingState() actionalgebra.BettingState {
	return actionalgebra.BettingState{
		CurrentBet: h.currentBet,
		MinRaise:   h.minRaise,
		BigBlind:   h.bigBlind,
	}
}

// LegalActions returns the legal action kinds for the seat currently holding
// the action pointer, or nil if no seat is to act.
func (h *Hand) LegalActions() []actionalgebra.Kind {
	if h.ActionTo < 0 || h.ActionTo >= len(h.Seats) {
		return nil
	}
	return actionalgebra.LegalActions(h.Seats[h.ActionTo].playerState(), h.bettingState())
}

// Pot returns the total chips committed so far this hand, across all streets.
func (h *Hand) Pot() int {
	total := 0
	for _, s := range h.Seats {
		total += s.BetThisHand
	}
	return total
}

// isBettingComplete reports whether every seat still able to act has matched
// the current bet and acted this round, honoring the big blind's option in
// an unopened preflop pot.
func (h *Hand) isBettingComplete() bool {
	canAct := 0
	for _, s := range h.Seats {
		if s.CanAct() {
			canAct++
		}
	}
	if canAct == 0 {
		return true
	}

	for _, s := range h.Seats {
		if !s.CanAct() {
			continue
		}
		if s.BetThisRound != h.currentBet {
			return false
		}
		if !s.HasActed {
			return false
		}
	}

	if h.Street == Preflop && h.lastRaiser == -1 && !h.bbOptionTaken {
		bb := h.Seats[h.bbIndex()]
		if bb.CanAct() {
			return false
		}
	}

	return true
}

// CurrentBet returns the amount a seat must match this round.
func (h *Hand) CurrentBet() int {
	return h.currentBet
}

// BigBlind returns the hand's big blind size.
func (h *Hand) BigBlind() int {
	return h.bigBlind
}

// SmallBlind returns the hand's small blind size.
func (h *Hand) SmallBlind() int {
	return h.smallBlind
}

// ToCall returns how many more chips the given seat must add to match the
// current bet.
func (h *Hand) ToCall(seatIdx int) int {
	return h.currentBet - h.Seats[seatIdx].BetThisRound
}

// MinRaiseTo returns the smallest legal raise-to amount for the seat
// currently on the clock.
func (h *Hand) MinRaiseTo() int {
	if h.ActionTo < 0 {
		return 0
	}
	return actionalgebra.MinRaiseTo(h.bettingState())
}

// MaxRaiseTo returns the largest legal raise-to amount (an effective
// all-in) for the seat currently on the clock.
func (h *Hand) MaxRaiseTo() int {
	if h.ActionTo < 0 {
		return 0
	}
	return actionalgebra.MaxRaiseTo(h.Seats[h.ActionTo].playerState())
}

// BBIndex returns the index of the big blind seat for this hand's size.
func (h *Hand) BBIndex() int {
	return h.bbIndex()
}

// SBIndex returns the index of the small blind seat for this hand's size.
func (h *Hand) SBIndex() int {
	return h.sbIndex()
}

// bbIndex returns the index of the big blind seat for this hand's size.
func (h *Hand) bbIndex() int {
	n := len(h.Seats)
	if n == 2 {
		return (h.ButtonIndex + 1) % n
	}
	return (h.ButtonIndex + 2) % n
}

// sbIndex returns the index of the small blind seat for this hand's size.
func (h *Hand) sbIndex() int {
	n := len(h.Seats)
	if n == 2 {
		return h.ButtonIndex
	}
	return (h.ButtonIndex + 1) % n
}
