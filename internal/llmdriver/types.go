// Package llmdriver implements the per-seat decision protocol (§4.8):
// assemble a prompt from an observation, run a bounded tool loop against
// the seat's own Agent Memory, tolerantly parse the model's terminal text
// into a decision, validate it against the legal-action set, and retry or
// force a fallback action when it can't get a valid decision out of the
// model.
package llmdriver

import (
	"github.com/pokerbench/pokerbench/internal/agentmemory"
	"github.com/pokerbench/pokerbench/internal/modeltransport"
	"github.com/pokerbench/pokerbench/internal/observation"
)

// AgentActionKind is the closed vocabulary an agent's decision can name.
// Unlike actionalgebra.Kind, there is no separate "bet" - from the
// agent's point of view opening a pot and raising an existing one are both
// just "raise" with a raiseTo; the engine decides which one it actually is
// from the betting state.
type AgentActionKind string

const (
	ActionFold  AgentActionKind = "fold"
	ActionCheck AgentActionKind = "check"
	ActionCall  AgentActionKind = "call"
	ActionRaise AgentActionKind = "raise"
)

// AgentAction is a seat's private decision, §3's AgentAction data model.
type AgentAction struct {
	Kind       AgentActionKind
	RaiseTo    int
	Reasoning  string
	Forced     bool
	Retries    int
	ThinkingMs float64
}

// DecisionRequest bundles everything Decide needs for one seat's turn.
type DecisionRequest struct {
	Model      string
	SeatName   string
	Snapshot   observation.Snapshot
	Memory     *agentmemory.Memory
	Roster     map[int]string // seat number -> name, for tool name->seat resolution
	Params     modeltransport.Params
	MaxTurns   int // 0 uses the driver default
	MaxRetries int // 0 uses the driver default
}

// DecisionTrace is the full record of one Decide call, persisted by the
// external log collaborator per §4.8 step 7 and §6's `agents/hand_NNN.json`.
type DecisionTrace struct {
	SeatName     string
	Snapshot     observation.Snapshot
	Messages     []modeltransport.Message
	ToolCalls    []modeltransport.ToolCall
	RawResponses []modeltransport.Response
	FinalAction  AgentAction
	ElapsedMs    float64
	Retries      int
	Error        string
}
