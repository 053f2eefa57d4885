package observation

import (
	"github.com/pokerbench/pokerbench/internal/actionalgebra"
	"github.com/pokerbench/pokerbench/internal/pokerengine"
	"github.com/pokerbench/pokerbench/poker"
)

// SeatInfo is the public-only view of one seat at the table.
type SeatInfo struct {
	Seat     int
	Name     string
	Stack    int
	Folded   bool
	Active   bool
	Position string
}

// Snapshot is the strict, per-seat subset of a Hand's state that an agent
// is allowed to see: its own hole cards and stack are included, everyone
// else's are not.
type Snapshot struct {
	HandNumber int
	Street     pokerengine.Street

	OwnSeat      int
	OwnPosition  string
	OwnHoleCards poker.Hand
	OwnStack     int

	Community poker.Hand
	Pot       int

	ToCall      int
	MinRaiseTo  int
	MaxRaiseTo  int
	SmallBlind  int
	BigBlind    int
	ButtonSeat  int

	Seats   []SeatInfo
	Actions []pokerengine.ActionRecord

	LegalActions []actionalgebra.Kind
}

// Build produces the snapshot for seatIdx's next decision in h. seatIdx
// need not be the seat currently on the clock - a finished hand's snapshot
// (for logging or memory) is just as valid, with an empty legal-action set.
func Build(h *pokerengine.Hand, seatIdx int) Snapshot {
	// Every seat dealt into this hand counts for position purposes - a
	// busted seat is dropped from the roster before NewHand is ever called,
	// so h.Seats already is the active set.
	activeIdx := make([]int, len(h.Seats))
	for i := range h.Seats {
		activeIdx[i] = i
	}

	seats := make([]SeatInfo, len(h.Seats))
	for i, s := range h.Seats {
		seats[i] = SeatInfo{
			Seat:     s.SeatNumber,
			Name:     s.Name,
			Stack:    s.Stack,
			Folded:   s.HasFolded,
			Active:   s.CanAct(),
			Position: PositionFor(i, h.ButtonIndex, activeIdx),
		}
	}

	own := h.Seats[seatIdx]
	snap := Snapshot{
		HandNumber:   h.HandNumber,
		Street:       h.Street,
		OwnSeat:      own.SeatNumber,
		OwnPosition:  seats[seatIdx].Position,
		OwnHoleCards: own.HoleCards,
		OwnStack:     own.Stack,
		Community:    h.Board,
		Pot:          h.Pot(),
		SmallBlind:   h.SmallBlind(),
		BigBlind:     h.BigBlind(),
		ButtonSeat:   h.Seats[h.ButtonIndex].SeatNumber,
		Seats:        seats,
		Actions:      append([]pokerengine.ActionRecord(nil), h.Actions...),
	}

	if h.ActionTo == seatIdx {
		snap.ToCall = h.ToCall(seatIdx)
		snap.MinRaiseTo = h.MinRaiseTo()
		snap.MaxRaiseTo = h.MaxRaiseTo()
		snap.LegalActions = h.LegalActions()
	}

	return snap
}
