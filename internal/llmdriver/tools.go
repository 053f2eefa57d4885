package llmdriver

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/opencoff/go-chd"

	"github.com/pokerbench/pokerbench/internal/agentmemory"
	"github.com/pokerbench/pokerbench/internal/modeltransport"
)

const (
	toolRecallOpponentActions = "recall_opponent_actions"
	toolRecallMyHands         = "recall_my_hands"
	toolSearchObservations    = "search_observations"
)

var toolNames = []string{toolRecallOpponentActions, toolRecallMyHands, toolSearchObservations}

// toolIndex validates a tool-call name against the fixed, closed set the
// driver exposes to the model, using a minimal perfect hash over the three
// names rather than a sequential string compare or a map - the set is
// small and never changes at runtime, which is exactly the case go-chd's
// compress-hash-displace construction targets.
type toolIndex struct {
	mph  *chd.CHD
	keys []string
}

func newToolIndex(names []string) (*toolIndex, error) {
	b := chd.NewBuilder()
	for _, n := range names {
		b.Add([]byte(n))
	}
	mph, err := b.Freeze(0.9)
	if err != nil {
		return nil, fmt.Errorf("llmdriver: building tool-name hash: %w", err)
	}
	return &toolIndex{mph: mph, keys: names}, nil
}

// Valid reports whether name is one of the tools the driver exposes. A
// perfect hash has no reject state of its own - an unrecognized key still
// maps to some index - so membership is confirmed by comparing the
// original key stored at that index, not by the hash alone.
func (t *toolIndex) Valid(name string) bool {
	idx := t.mph.Find([]byte(name))
	return int(idx) < len(t.keys) && t.keys[idx] == name
}

func toolSchemas() []modeltransport.ToolSchema {
	return []modeltransport.ToolSchema{
		{
			Name:        toolRecallOpponentActions,
			Description: "Look up actions a specific opponent (by seat or name) has taken in past hands this memory has recorded, optionally filtered by street and action type.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"opponent_seat": {"type": "integer"},
					"opponent_name": {"type": "string"},
					"street": {"type": "string", "enum": ["preflop","flop","turn","river","showdown"]},
					"action_type": {"type": "string", "enum": ["fold","check","call","bet","raise","allIn","postSB","postBB"]},
					"limit": {"type": "integer", "default": 20}
				}
			}`),
		},
		{
			Name:        toolRecallMyHands,
			Description: "Look up this agent's own past hands, optionally filtered by result and position, with win/fold counts.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"result": {"type": "string", "enum": ["won","lost","folded","split"]},
					"position": {"type": "string"},
					"limit": {"type": "integer", "default": 10}
				}
			}`),
		},
		{
			Name:        toolSearchObservations,
			Description: "Substring search over a denormalized text view of this agent's hand history.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string"},
					"limit": {"type": "integer", "default": 10}
				},
				"required": ["query"]
			}`),
		},
	}
}

type recallOpponentActionsArgs struct {
	OpponentSeat *int   `json:"opponent_seat"`
	OpponentName string `json:"opponent_name"`
	Street       string `json:"street"`
	ActionType   string `json:"action_type"`
	Limit        int    `json:"limit"`
}

type recallMyHandsArgs struct {
	Result   string `json:"result"`
	Position string `json:"position"`
	Limit    int    `json:"limit"`
}

type searchObservationsArgs struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// executeTool dispatches a validated tool call against mem, returning the
// text to send back as the tool-result message. Tools never mutate mem
// (§4.8 "Agent Memory is not mutated by tools").
func executeTool(name string, arguments json.RawMessage, mem *agentmemory.Memory, roster map[int]string) string {
	switch name {
	case toolRecallOpponentActions:
		var args recallOpponentActionsArgs
		if err := json.Unmarshal(arguments, &args); err != nil {
			return fmt.Sprintf("error: invalid arguments: %v", err)
		}
		return recallOpponentActions(args, mem, roster)
	case toolRecallMyHands:
		var args recallMyHandsArgs
		if err := json.Unmarshal(arguments, &args); err != nil {
			return fmt.Sprintf("error: invalid arguments: %v", err)
		}
		return recallMyHands(args, mem)
	case toolSearchObservations:
		var args searchObservationsArgs
		if err := json.Unmarshal(arguments, &args); err != nil {
			return fmt.Sprintf("error: invalid arguments: %v", err)
		}
		return searchObservations(args, mem)
	default:
		return fmt.Sprintf("error: unknown tool %q", name)
	}
}

func resolveSeat(args recallOpponentActionsArgs, roster map[int]string) (int, bool) {
	if args.OpponentSeat != nil {
		return *args.OpponentSeat, true
	}
	if args.OpponentName == "" {
		return 0, false
	}
	for seat, name := range roster {
		if strings.EqualFold(name, args.OpponentName) {
			return seat, true
		}
	}
	return 0, false
}

func recallOpponentActions(args recallOpponentActionsArgs, mem *agentmemory.Memory, roster map[int]string) string {
	limit := args.Limit
	if limit <= 0 {
		limit = 20
	}

	seat, haveSeat := resolveSeat(args, roster)
	if !haveSeat && args.OpponentName != "" {
		return fmt.Sprintf("no seat found for opponent_name %q", args.OpponentName)
	}

	hands := mem.Query(func(h agentmemory.HandRecord) bool {
		matched := false
		for _, a := range h.Actions {
			if haveSeat && a.Seat != seat {
				continue
			}
			if args.Street != "" && a.Street.String() != args.Street {
				continue
			}
			if args.ActionType != "" && string(a.Kind) != args.ActionType {
				continue
			}
			matched = true
		}
		return matched
	}, agentmemory.Page{Limit: limit})

	var b strings.Builder
	for _, h := range hands {
		fmt.Fprintf(&b, "hand %d (%s):\n", h.HandNumber, h.Outcome)
		for _, a := range h.Actions {
			if haveSeat && a.Seat != seat {
				continue
			}
			if args.Street != "" && a.Street.String() != args.Street {
				continue
			}
			if args.ActionType != "" && string(a.Kind) != args.ActionType {
				continue
			}
			fmt.Fprintf(&b, "  %s seat %d %s %d\n", a.Street, a.Seat, a.Kind, a.Amount)
		}
	}
	if b.Len() == 0 {
		return "no matching actions found"
	}
	return b.String()
}

func recallMyHands(args recallMyHandsArgs, mem *agentmemory.Memory) string {
	limit := args.Limit
	if limit <= 0 {
		limit = 10
	}

	hands := mem.Query(func(h agentmemory.HandRecord) bool {
		if args.Result != "" && string(h.Outcome) != args.Result {
			return false
		}
		if args.Position != "" && h.Position != args.Position {
			return false
		}
		return true
	}, agentmemory.Page{Limit: limit})

	wins, folds := 0, 0
	var b strings.Builder
	for _, h := range hands {
		switch h.Outcome {
		case agentmemory.Won:
			wins++
		case agentmemory.Folded:
			folds++
		}
		fmt.Fprintf(&b, "hand %d position %s outcome %s chips %+d pot %d\n", h.HandNumber, h.Position, h.Outcome, h.ChipsWon, h.Pot)
	}
	fmt.Fprintf(&b, "summary: %d hands, %d won, %d folded\n", len(hands), wins, folds)
	return b.String()
}

func searchObservations(args searchObservationsArgs, mem *agentmemory.Memory) string {
	limit := args.Limit
	if limit <= 0 {
		limit = 10
	}
	hands := mem.Search(args.Query, agentmemory.Page{Limit: limit})
	if len(hands) == 0 {
		return "no matches"
	}
	var b strings.Builder
	for _, h := range hands {
		fmt.Fprintf(&b, "hand %d position %s outcome %s\n", h.HandNumber, h.Position, h.Outcome)
	}
	return b.String()
}
