// Package pokerengine implements the No-Limit Hold'em hand state machine:
// blind posting, the action pointer, street transitions, and side-pot
// payout at showdown. It owns no concept of a tournament or a seat's
// identity beyond one hand; the runner is responsible for carrying stacks,
// the button, and elimination across hands.
package pokerengine

import (
	"fmt"
	"math/rand"

	"github.com/pokerbench/pokerbench/internal/actionalgebra"
	"github.com/pokerbench/pokerbench/poker"
)

// Hand is one dealt hand from blinds through payout.
type Hand struct {
	HandNumber  int
	ButtonIndex int
	Street      Street
	Board       poker.Hand
	Seats       []*Seat
	ActionTo    int
	Actions     []ActionRecord
	Deck        *poker.Deck
	Complete    bool

	// Pots and PotsAwarded are populated once Complete is true.
	Pots        []Pot
	PotsAwarded map[int]int
	FatalErr    error

	currentBet    int
	minRaise      int
	smallBlind    int
	bigBlind      int
	lastRaiser    int
	bbOptionTaken bool
}

// NewHand deals a fresh hand: it shuffles (unless a deck is supplied),
// posts blinds, deals hole cards, and sets the action pointer to the first
// seat to act preflop. Every seat must have Stack > 0 - filtering out
// busted seats is the tournament runner's job, not the engine's.
func NewHand(rng *rand.Rand, seats []SeatConfig, buttonIndex, smallBlind, bigBlind int, opts ...HandOption) *Hand {
	if rng == nil {
		panic("pokerengine: rng is required")
	}
	if len(seats) < 2 {
		panic("pokerengine: at least 2 seats required")
	}
	if buttonIndex < 0 || buttonIndex >= len(seats) {
		panic("pokerengine: button index out of range")
	}
	if smallBlind <= 0 || bigBlind <= smallBlind {
		panic("pokerengine: big blind must exceed small blind, both must be positive")
	}
	for _, sc := range seats {
		if sc.Stack <= 0 {
			panic("pokerengine: every seat must have a positive stack")
		}
	}

	cfg := &handConfig{handNumber: 1}
	for _, opt := range opts {
		opt(cfg)
	}

	deck := cfg.deck
	if deck == nil {
		deck = poker.NewDeck(rng)
	}

	h := &Hand{
		HandNumber:  cfg.handNumber,
		ButtonIndex: buttonIndex,
		Street:      Preflop,
		Deck:        deck,
		smallBlind:  smallBlind,
		bigBlind:    bigBlind,
		lastRaiser:  -1,
	}

	h.Seats = make([]*Seat, len(seats))
	for i, sc := range seats {
		h.Seats[i] = &Seat{SeatNumber: sc.SeatNumber, Name: sc.Name, Stack: sc.Stack}
	}

	h.postBlinds(smallBlind, bigBlind)
	h.dealHoleCards()

	n := len(h.Seats)
	if n == 2 {
		h.ActionTo = h.nextActingFrom(h.ButtonIndex)
	} else {
		h.ActionTo = h.nextActingFrom((h.bbIndex() + 1) % n)
	}

	return h
}

func (h *Hand) postBlinds(sb, bb int) {
	h.postBlind(h.sbIndex(), sb, ActionPostSB)
	h.postBlind(h.bbIndex(), bb, ActionPostBB)
	h.currentBet = bb
	h.minRaise = bb
}

func (h *Hand) postBlind(idx, amount int, kind ActionKind) {
	s := h.Seats[idx]
	actual := amount
	if actual > s.Stack {
		actual = s.Stack
	}
	s.Stack -= actual
	s.BetThisRound = actual
	s.BetThisHand = actual
	if s.Stack == 0 {
		s.IsAllIn = true
	}
	h.Actions = append(h.Actions, ActionRecord{Street: Preflop, Seat: s.SeatNumber, Kind: kind, Amount: actual, PotAfter: h.Pot()})
}

// dealHoleCards deals one card at a time, clockwise from the seat left of
// the button, two full passes - an arbitrary but documented and
// deterministic choice (see DESIGN.md) since the spec leaves dealing order
// unobservable under a reshuffle-per-hand policy.
func (h *Hand) dealHoleCards() {
	n := len(h.Seats)
	start := (h.ButtonIndex + 1) % n
	for pass := 0; pass < 2; pass++ {
		for i := 0; i < n; i++ {
			idx := (start + i) % n
			card := h.Deck.Deal(1)[0]
			h.Seats[idx].HoleCards.AddCard(card)
		}
	}
}

// ValidateAndNormalize maps an agent-submitted kind/raiseTo onto an engine
// Action for the seat currently on the clock, without applying it.
func (h *Hand) ValidateAndNormalize(seatIdx int, kind actionalgebra.Kind, raiseTo int) (actionalgebra.Action, error) {
	if seatIdx < 0 || seatIdx >= len(h.Seats) {
		return actionalgebra.Action{}, fmt.Errorf("pokerengine: seat %d out of range", seatIdx)
	}
	s := h.Seats[seatIdx]
	a, err := actionalgebra.Normalize(kind, raiseTo, s.playerState(), h.bettingState())
	if err != nil {
		return actionalgebra.Action{}, err
	}
	if err := actionalgebra.Validate(a, s.playerState(), h.bettingState()); err != nil {
		return actionalgebra.Action{}, err
	}
	return a, nil
}

// Apply applies an already-normalized, already-validated action for the
// seat currently holding the action pointer, mutating chips and pot,
// appending to the action log, and advancing the pointer (which may close
// the street, deal community cards, or complete the hand).
func (h *Hand) Apply(seatIdx int, a actionalgebra.Action) error {
	if h.Complete {
		return fmt.Errorf("pokerengine: hand is already complete")
	}
	if seatIdx != h.ActionTo {
		return fmt.Errorf("pokerengine: seat %d cannot act, action is on seat %d", seatIdx, h.ActionTo)
	}

	s := h.Seats[seatIdx]
	if err := actionalgebra.Validate(a, s.playerState(), h.bettingState()); err != nil {
		return err
	}

	oldCurrentBet := h.currentBet

	switch a.Kind {
	case actionalgebra.Fold:
		s.HasFolded = true

	case actionalgebra.Check:
		// no chip movement

	case actionalgebra.Call:
		h.commitTo(s, a.Amount, a.IsAllIn)

	case actionalgebra.Bet, actionalgebra.Raise:
		h.commitTo(s, a.Amount, a.IsAllIn)

		full := a.Kind == actionalgebra.Bet || actionalgebra.IsFullRaise(oldCurrentBet, a.Amount, h.minRaise)
		h.currentBet = a.Amount
		h.lastRaiser = seatIdx

		if full {
			increment := a.Amount - oldCurrentBet
			if increment < h.bigBlind {
				increment = h.bigBlind
			}
			h.minRaise = increment
			for i, other := range h.Seats {
				// An all-in-for-less raise must not reopen action to seats
				// that already acted after the last full raise (§4.5, §8).
				if i != seatIdx && other.CanAct() {
					other.HasActed = false
				}
			}
		}
	}

	s.HasActed = true
	if h.Street == Preflop && seatIdx == h.bbIndex() {
		h.bbOptionTaken = true
	}

	h.Actions = append(h.Actions, ActionRecord{
		Street:   h.Street,
		Seat:     s.SeatNumber,
		Kind:     classify(a),
		Amount:   a.Amount,
		PotAfter: h.Pot(),
	})

	h.advance(seatIdx)
	return nil
}

// ApplyWithFallback applies a, and on validation failure substitutes check
// then fold (§4.5 "fallback on invalid engine action from the driver"). It
// returns the action that was actually applied, or a fatal error if even
// fold is illegal - which means the hand's bookkeeping is corrupt.
func (h *Hand) ApplyWithFallback(seatIdx int, a actionalgebra.Action) (actionalgebra.Action, error) {
	if err := h.Apply(seatIdx, a); err == nil {
		return a, nil
	}

	check := actionalgebra.Action{Kind: actionalgebra.Check}
	if err := h.Apply(seatIdx, check); err == nil {
		return check, nil
	}

	fold := actionalgebra.Action{Kind: actionalgebra.Fold}
	if err := h.Apply(seatIdx, fold); err != nil {
		return actionalgebra.Action{}, fmt.Errorf("pokerengine: hand corrupt, seat %d can neither check nor fold: %w", seatIdx, err)
	}
	return fold, nil
}

func (h *Hand) commitTo(s *Seat, amount int, isAllIn bool) {
	delta := amount - s.BetThisRound
	s.Stack -= delta
	s.BetThisRound = amount
	s.BetThisHand += delta
	if isAllIn {
		s.IsAllIn = true
	}
}

func classify(a actionalgebra.Action) ActionKind {
	if a.IsAllIn && a.Kind != actionalgebra.Fold && a.Kind != actionalgebra.Check {
		return ActionAllIn
	}
	switch a.Kind {
	case actionalgebra.Fold:
		return ActionFold
	case actionalgebra.Check:
		return ActionCheck
	case actionalgebra.Call:
		return ActionCall
	case actionalgebra.Bet:
		return ActionBet
	default:
		return ActionRaise
	}
}

// advance moves the action pointer after seatIdx has acted, closing the
// street or completing the hand as needed.
func (h *Hand) advance(seatIdx int) {
	nonFolded := 0
	for _, s := range h.Seats {
		if !s.HasFolded {
			nonFolded++
		}
	}
	if nonFolded <= 1 {
		h.ActionTo = -1
		h.finish()
		return
	}

	h.ActionTo = h.nextActingFrom((seatIdx + 1) % len(h.Seats))
	if h.ActionTo == -1 || h.isBettingComplete() {
		h.advanceStreet()
	}
}

// advanceStreet resets per-round betting state, deals the next community
// cards, and sets the new street's first actor - recursing straight to
// showdown if at most one seat remains able to act.
func (h *Hand) advanceStreet() {
	for _, s := range h.Seats {
		s.BetThisRound = 0
		s.HasActed = false
	}
	h.currentBet = 0
	h.minRaise = h.bigBlind
	h.lastRaiser = -1
	h.bbOptionTaken = false

	switch h.Street {
	case Preflop:
		h.Street = Flop
		h.dealBoard(3)
	case Flop:
		h.Street = Turn
		h.dealBoard(1)
	case Turn:
		h.Street = River
		h.dealBoard(1)
	case River:
		h.Street = Showdown
	case Showdown:
		h.finish()
		return
	}

	if h.Street == Showdown {
		h.finish()
		return
	}

	n := len(h.Seats)
	h.ActionTo = h.nextActingFrom((h.ButtonIndex + 1) % n)

	canAct := 0
	for _, s := range h.Seats {
		if s.CanAct() {
			canAct++
		}
	}
	if canAct <= 1 {
		h.advanceStreet()
	}
}

func (h *Hand) dealBoard(n int) {
	for _, c := range h.Deck.Deal(n) {
		h.Board.AddCard(c)
	}
}

// finish builds side pots from cumulative contributions and awards them.
func (h *Hand) finish() {
	h.Complete = true
	h.ActionTo = -1
	h.Pots = buildSidePots(h.Seats)
	awarded, err := awardPots(h.Seats, h.Board, h.Pots, h.ButtonIndex)
	h.PotsAwarded = awarded
	h.FatalErr = err
}

// nextActingFrom scans forward from (and including) from for a seat that
// can still act, returning -1 if none remain.
func (h *Hand) nextActingFrom(from int) int {
	n := len(h.Seats)
	for i := 0; i < n; i++ {
		idx := (from + i) % n
		if h.Seats[idx].CanAct() {
			return idx
		}
	}
	return -1
}

// IsComplete reports whether the hand has reached a terminal state.
func (h *Hand) IsComplete() bool {
	return h.Complete
}
