package pokerengine

import "github.com/pokerbench/pokerbench/poker"

// HandOption configures a Hand during construction.
type HandOption func(*handConfig)

type handConfig struct {
	deck       *poker.Deck
	handNumber int
}

// WithDeck supplies a pre-built deck, overriding the RNG passed to NewHand
// for deck construction. Used by replay and deterministic tests.
func WithDeck(deck *poker.Deck) HandOption {
	return func(c *handConfig) {
		c.deck = deck
	}
}

// WithHandNumber sets the hand number recorded on the Hand. Default is 1.
func WithHandNumber(n int) HandOption {
	return func(c *handConfig) {
		c.handNumber = n
	}
}
