package pokerengine

import (
	"fmt"
	"sort"

	"github.com/pokerbench/pokerbench/poker"
)

// Pot is one main or side pot, built once at hand completion from the
// cumulative BetThisHand of every seat (§4.5 "side-pot construction at
// showdown"). Eligible holds seat indices, not seat numbers.
type Pot struct {
	Amount   int
	Eligible []int
}

// buildSidePots implements the spec's sorted-distinct-levels algorithm:
// for each gap between consecutive distinct contribution levels, the pot
// contribution is the gap width times the number of seats that reached it,
// and the eligible set is those contributors who did not fold. A folded
// seat's chips still count toward the pots they reached; a folded seat is
// never eligible to win one.
func buildSidePots(seats []*Seat) []Pot {
	levelSet := make(map[int]bool)
	for _, s := range seats {
		if s.BetThisHand > 0 {
			levelSet[s.BetThisHand] = true
		}
	}
	if len(levelSet) == 0 {
		return nil
	}

	levels := make([]int, 0, len(levelSet))
	for l := range levelSet {
		levels = append(levels, l)
	}
	sort.Ints(levels)

	var pots []Pot
	carry := 0
	prev := 0
	for _, level := range levels {
		gap := level - prev
		contributors := 0
		var eligible []int
		for i, s := range seats {
			if s.BetThisHand >= level {
				contributors++
				if !s.HasFolded {
					eligible = append(eligible, i)
				}
			}
		}
		amount := gap*contributors + carry
		carry = 0
		if len(eligible) == 0 {
			carry = amount
		} else {
			pots = append(pots, Pot{Amount: amount, Eligible: eligible})
		}
		prev = level
	}

	if carry > 0 && len(pots) > 0 {
		pots[len(pots)-1].Amount += carry
	}

	return pots
}

// awardPots resolves the winner(s) of every pot and credits seat stacks in
// place, returning seat index -> chips received. A pot with one eligible
// seat is awarded without evaluation (covers the fold-out case, where the
// board may be incomplete). A pot with multiple eligible seats requires a
// completed 5-card board.
func awardPots(seats []*Seat, board poker.Hand, pots []Pot, buttonIndex int) (map[int]int, error) {
	awarded := make(map[int]int)

	for _, pot := range pots {
		if pot.Amount == 0 || len(pot.Eligible) == 0 {
			continue
		}

		var winners []int
		if len(pot.Eligible) == 1 {
			winners = pot.Eligible
		} else {
			boardCards := board.Cards()
			if len(boardCards) != 5 {
				return nil, fmt.Errorf("pokerengine: cannot resolve contested pot before a complete board")
			}
			hole := make(map[int][]poker.Card, len(pot.Eligible))
			for _, idx := range pot.Eligible {
				hole[idx] = seats[idx].HoleCards.Cards()
			}
			winSet, _, err := poker.Winners(hole, boardCards)
			if err != nil {
				return nil, fmt.Errorf("pokerengine: resolving pot: %w", err)
			}
			for idx := range winSet {
				winners = append(winners, idx)
			}
		}

		ordered := clockwiseFrom(winners, (buttonIndex+1)%len(seats), len(seats))

		share := pot.Amount / len(ordered)
		remainder := pot.Amount % len(ordered)
		for i, idx := range ordered {
			amt := share
			if i < remainder {
				amt++
			}
			seats[idx].Stack += amt
			awarded[idx] += amt
		}
	}

	return awarded, nil
}

// clockwiseFrom sorts seat indices by clockwise distance from the given
// starting index, wrapping modulo n.
func clockwiseFrom(idxs []int, from, n int) []int {
	ordered := make([]int, len(idxs))
	copy(ordered, idxs)
	sort.Slice(ordered, func(i, j int) bool {
		di := (ordered[i] - from + n) % n
		dj := (ordered[j] - from + n) % n
		return di < dj
	})
	return ordered
}
