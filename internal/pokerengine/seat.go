package pokerengine

import "github.com/pokerbench/pokerbench/poker"

// Seat is one player's state for the lifetime of a single hand. Index into
// Hand.Seats is stable for the hand; SeatNumber is the table seat identity
// that survives across hands (button rotation, elimination tracking).
type Seat struct {
	SeatNumber int
	Name       string
	Stack      int
	HoleCards  poker.Hand

	BetThisRound int
	BetThisHand  int

	HasActed  bool
	IsAllIn   bool
	HasFolded bool
}

// CanAct reports whether the seat is still eligible to receive the action
// pointer this street.
func (s *Seat) CanAct() bool {
	return !s.HasFolded && !s.IsAllIn
}

// SeatConfig describes one seat's starting condition when constructing a Hand.
type SeatConfig struct {
	SeatNumber int
	Name       string
	Stack      int
}
