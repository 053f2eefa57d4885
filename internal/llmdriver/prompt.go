package llmdriver

import (
	"fmt"
	"strings"

	"github.com/pokerbench/pokerbench/internal/actionalgebra"
	"github.com/pokerbench/pokerbench/internal/observation"
	"github.com/pokerbench/pokerbench/poker"
)

// renderHand formats a card mask as a space-separated list of rank/suit
// pairs, e.g. "Ah Kd", or "-" for an empty hand (no board yet, or a folded
// seat whose cards are hidden).
func renderHand(h poker.Hand) string {
	cards := h.Cards()
	if len(cards) == 0 {
		return "-"
	}
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

const systemPrompt = `You are playing no-limit Texas hold'em against other agents in a tournament.
On your turn you must respond with a single JSON object and nothing else:

  {"action": "fold"|"check"|"call"|"raise", "raiseTo": <int, only for raise>, "reasoning": "<short explanation>"}

Only choose an action from the legal actions listed for this turn. A raise's
raiseTo is your total bet for this betting round after the action, including
chips you already put in this round, not the additional chips put in. You may call the recall_opponent_actions,
recall_my_hands, and search_observations tools as many times as you find
useful before answering, but you must eventually answer with the JSON object
above and nothing else in your final message.`

// formatChips renders a chip amount alongside its big-blind-relative size,
// e.g. "800 (40.0bb)", so a model reasons the same way across blind levels
// instead of re-deriving stack depth from raw chip counts every hand.
func formatChips(chips, bigBlind int) string {
	if bigBlind <= 0 {
		return fmt.Sprintf("%d", chips)
	}
	return fmt.Sprintf("%d (%.1fbb)", chips, float64(chips)/float64(bigBlind))
}

// renderObservation turns a Snapshot into the human-readable table state an
// agent reasons over.
func renderObservation(snap observation.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hand #%d, street: %s\n", snap.HandNumber, snap.Street)
	fmt.Fprintf(&b, "You are seat %d (%s), hole cards: %s, stack: %s\n", snap.OwnSeat, snap.OwnPosition, renderHand(snap.OwnHoleCards), formatChips(snap.OwnStack, snap.BigBlind))
	fmt.Fprintf(&b, "Board: %s\n", renderHand(snap.Community))
	fmt.Fprintf(&b, "Pot: %s, small blind: %d, big blind: %d, button seat: %d\n", formatChips(snap.Pot, snap.BigBlind), snap.SmallBlind, snap.BigBlind, snap.ButtonSeat)

	b.WriteString("Seats:\n")
	for _, s := range snap.Seats {
		status := "active"
		switch {
		case s.Folded:
			status = "folded"
		case !s.Active:
			status = "out"
		}
		fmt.Fprintf(&b, "  seat %d %q position %s stack %s (%s)\n", s.Seat, s.Name, s.Position, formatChips(s.Stack, snap.BigBlind), status)
	}

	if len(snap.Actions) > 0 {
		b.WriteString("Action this hand:\n")
		for _, a := range snap.Actions {
			fmt.Fprintf(&b, "  %s seat %d %s %s\n", a.Street, a.Seat, a.Kind, formatChips(a.Amount, snap.BigBlind))
		}
	}

	if len(snap.LegalActions) > 0 {
		fmt.Fprintf(&b, "To call: %s. Legal actions: %s. Raise range: %s-%s.\n",
			formatChips(snap.ToCall, snap.BigBlind), legalActionsList(snap.LegalActions), formatChips(snap.MinRaiseTo, snap.BigBlind), formatChips(snap.MaxRaiseTo, snap.BigBlind))
	}

	return b.String()
}

func legalActionsList(kinds []actionalgebra.Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
