// Package agentmemory is the per-seat, grow-only record of everything one
// agent has observed across a tournament: its own hands, the actions it
// watched other seats take, and the outcomes. It answers first-class
// predicate queries rather than free text, mirroring the closed vocabulary
// the rest of the engine already uses for streets and action kinds.
package agentmemory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pokerbench/pokerbench/internal/pokerengine"
	"github.com/pokerbench/pokerbench/poker"
)

// Outcome is a completed hand's result from the owning seat's perspective.
type Outcome string

const (
	Won    Outcome = "won"
	Lost   Outcome = "lost"
	Folded Outcome = "folded"
	Split  Outcome = "split"
)

// ShowdownReveal records a seat's revealed hole cards at showdown.
type ShowdownReveal struct {
	Seat  int
	Cards poker.Hand
}

// HandRecord is one completed hand as seen from the owning seat's side of
// the table: the seat's own cards, everything that happened publicly, and
// how it came out.
type HandRecord struct {
	HandNumber int
	HoleCards  poker.Hand
	Position   string
	Community  poker.Hand
	Actions    []pokerengine.ActionRecord
	Showdowns  []ShowdownReveal
	Outcome    Outcome
	ChipsWon   int
	Pot        int
	FinalStack int
}

// Memory accumulates HandRecords for a single seat across a tournament. It
// is grow-only: nothing is ever edited or removed from a completed record,
// and no method discards history (a new tournament run starts
// each seat with a fresh Memory rather than clearing an old one in place).
type Memory struct {
	seatName string
	hands    []HandRecord
	current  *HandRecord
}

// New creates an empty memory for the seat identified by name, used to
// label denormalized search results.
func New(seatName string) *Memory {
	return &Memory{seatName: seatName}
}

// StartHand opens a new in-progress HandRecord. Any previous in-progress
// record that was never closed with EndHand is discarded silently - callers
// are expected to always pair StartHand with EndHand.
func (m *Memory) StartHand(handNumber int, holeCards poker.Hand, position string) {
	m.current = &HandRecord{
		HandNumber: handNumber,
		HoleCards:  holeCards,
		Position:   position,
	}
}

// RecordAction appends one publicly observed action to the in-progress hand.
func (m *Memory) RecordAction(street pokerengine.Street, seat int, name string, kind pokerengine.ActionKind, amount int) {
	if m.current == nil {
		return
	}
	m.current.Actions = append(m.current.Actions, pokerengine.ActionRecord{
		Street: street,
		Seat:   seat,
		Kind:   kind,
		Amount: amount,
	})
	_ = name // seat number is the addressable key; name is carried via the table roster, not duplicated per action
}

// UpdateCommunity replaces the in-progress hand's community cards, called
// once per street as the board is dealt.
func (m *Memory) UpdateCommunity(cards poker.Hand) {
	if m.current == nil {
		return
	}
	m.current.Community = cards
}

// RecordShowdown appends a seat's revealed hole cards to the in-progress hand.
func (m *Memory) RecordShowdown(seat int, cards poker.Hand) {
	if m.current == nil {
		return
	}
	m.current.Showdowns = append(m.current.Showdowns, ShowdownReveal{Seat: seat, Cards: cards})
}

// EndHand closes the in-progress hand, recording its outcome, and appends
// it to history. Calling EndHand without a matching StartHand is a no-op.
func (m *Memory) EndHand(result Outcome, chipsWon, pot, finalStack int) {
	if m.current == nil {
		return
	}
	m.current.Outcome = result
	m.current.ChipsWon = chipsWon
	m.current.Pot = pot
	m.current.FinalStack = finalStack
	m.hands = append(m.hands, *m.current)
	m.current = nil
}

// Len reports the number of completed hands in memory.
func (m *Memory) Len() int {
	return len(m.hands)
}

// Page bounds a query's result window. Results are always ordered
// most-recent-last (oldest first), matching a hand history's natural
// reading order; Offset/Limit slice into that order.
type Page struct {
	Offset int
	Limit  int
}

func (p Page) apply(records []HandRecord) []HandRecord {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Offset >= len(records) {
		return nil
	}
	end := len(records)
	if p.Limit > 0 && p.Offset+p.Limit < end {
		end = p.Offset + p.Limit
	}
	return records[p.Offset:end]
}

// ByOpponentSeat returns completed hands in which the given seat acted.
func (m *Memory) ByOpponentSeat(seat int, page Page) []HandRecord {
	return page.apply(filter(m.hands, func(h HandRecord) bool {
		for _, a := range h.Actions {
			if a.Seat == seat {
				return true
			}
		}
		return false
	}))
}

// ByStreet returns completed hands that reached the given street.
func (m *Memory) ByStreet(street pokerengine.Street, page Page) []HandRecord {
	return page.apply(filter(m.hands, func(h HandRecord) bool {
		for _, a := range h.Actions {
			if a.Street == street {
				return true
			}
		}
		return street == pokerengine.Preflop // every hand reaches preflop, even with no recorded action
	}))
}

// ByActionKind returns completed hands containing at least one action of
// the given kind, by any seat.
func (m *Memory) ByActionKind(kind pokerengine.ActionKind, page Page) []HandRecord {
	return page.apply(filter(m.hands, func(h HandRecord) bool {
		for _, a := range h.Actions {
			if a.Kind == kind {
				return true
			}
		}
		return false
	}))
}

// ByResult returns completed hands with the given outcome for this seat.
func (m *Memory) ByResult(result Outcome, page Page) []HandRecord {
	return page.apply(filter(m.hands, func(h HandRecord) bool {
		return h.Outcome == result
	}))
}

// ByPosition returns completed hands played from the given position label.
func (m *Memory) ByPosition(position string, page Page) []HandRecord {
	return page.apply(filter(m.hands, func(h HandRecord) bool {
		return h.Position == position
	}))
}

// Query runs an arbitrary predicate over completed hands, for callers that
// need to combine several of the named predicates above (the tool layer in
// internal/llmdriver does this for recall_opponent_actions' multiple
// optional filters) without reimplementing pagination.
func (m *Memory) Query(keep func(HandRecord) bool, page Page) []HandRecord {
	return page.apply(filter(m.hands, keep))
}

// Search runs a case-insensitive substring match over a denormalized,
// one-line-per-hand text view (position, outcome, and each action rendered
// as "seat <n> <kind> <amount>"), for queries that don't fit the
// structured predicates above.
func (m *Memory) Search(substr string, page Page) []HandRecord {
	needle := strings.ToLower(substr)
	return page.apply(filter(m.hands, func(h HandRecord) bool {
		return strings.Contains(strings.ToLower(denormalize(h)), needle)
	}))
}

func denormalize(h HandRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "hand %d position %s outcome %s pot %d chips %d ", h.HandNumber, h.Position, h.Outcome, h.Pot, h.ChipsWon)
	for _, a := range h.Actions {
		fmt.Fprintf(&b, "%s seat %d %s %d ", a.Street, a.Seat, a.Kind, a.Amount)
	}
	for _, s := range h.Showdowns {
		fmt.Fprintf(&b, "showdown seat %d ", s.Seat)
	}
	return b.String()
}

func filter(hands []HandRecord, keep func(HandRecord) bool) []HandRecord {
	out := make([]HandRecord, 0, len(hands))
	for _, h := range hands {
		if keep(h) {
			out = append(out, h)
		}
	}
	return out
}

// AllHands returns every completed hand, most-recent-last, paginated.
func (m *Memory) AllHands(page Page) []HandRecord {
	return page.apply(m.hands)
}

// ClassSummary is one row of the rollup ShowdownClassFrequency returns: how
// often a hand class was shown down.
type ClassSummary struct {
	Class poker.HandClass
	Count int
}

// ShowdownClassFrequency reports how often each hand class has been seen
// at showdown across all completed hands, descending by count. It exists
// to exercise poker.Class from observed showdown reveals, letting an agent
// reason about an opponent's showdown range without re-deriving it itself.
func (m *Memory) ShowdownClassFrequency() []ClassSummary {
	counts := map[poker.HandClass]int{}
	for _, h := range m.hands {
		for _, s := range h.Showdowns {
			combined := s.Cards | h.Community
			if combined.CountCards() < 5 {
				continue
			}
			counts[poker.Class(poker.EvaluateHand(combined))]++
		}
	}
	out := make([]ClassSummary, 0, len(counts))
	for class, n := range counts {
		out = append(out, ClassSummary{Class: class, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Class < out[j].Class
	})
	return out
}
