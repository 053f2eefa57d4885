package llmdriver

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/pokerbench/pokerbench/internal/actionalgebra"
	"github.com/pokerbench/pokerbench/internal/modeltransport"
	"github.com/pokerbench/pokerbench/internal/observation"
)

const (
	defaultMaxTurns   = 5
	defaultMaxRetries = 3
)

// Driver runs the per-seat decision protocol (§4.8) against a single
// ModelTransport. One Driver is shared across every seat and hand in a
// tournament; all per-call state lives in Decide's locals.
type Driver struct {
	transport modeltransport.ModelTransport
	logger    *log.Logger
	clock     quartz.Clock
	tools     *toolIndex

	maxTurns   int
	maxRetries int
}

// New creates a Driver. logger is sub-prefixed per seat on each Decide call,
// the way the teacher's NetworkAgent derives a per-connection sublogger from
// a shared base logger. A nil clock defaults to the real wall clock.
func New(transport modeltransport.ModelTransport, logger *log.Logger, clock quartz.Clock) *Driver {
	if clock == nil {
		clock = quartz.NewReal()
	}
	idx, err := newToolIndex(toolNames)
	if err != nil {
		// The tool name set is a fixed compile-time constant; a failure here
		// means newToolIndex itself is broken, not a runtime condition.
		panic(err)
	}
	return &Driver{
		transport:  transport,
		logger:     logger,
		clock:      clock,
		tools:      idx,
		maxTurns:   defaultMaxTurns,
		maxRetries: defaultMaxRetries,
	}
}

// Decide runs req through the full protocol: assemble messages, loop on
// tool calls up to maxTurns, parse the terminal text into a decision,
// validate it against the legal-action set, retry with a corrective
// message up to maxRetries times, and fall back to a forced action
// (§4.8 step 6) if no valid decision is ever produced.
func (d *Driver) Decide(ctx context.Context, req DecisionRequest) (AgentAction, DecisionTrace, error) {
	maxTurns := req.MaxTurns
	if maxTurns <= 0 {
		maxTurns = d.maxTurns
	}
	maxRetries := req.MaxRetries
	if maxRetries <= 0 {
		maxRetries = d.maxRetries
	}

	logger := d.logger.WithPrefix("llmdriver").With("seat", req.Snapshot.OwnSeat, "hand", req.Snapshot.HandNumber)

	start := d.clock.Now()
	trace := DecisionTrace{SeatName: req.SeatName, Snapshot: req.Snapshot}

	messages := []modeltransport.Message{
		{Role: modeltransport.RoleSystem, Content: systemPrompt},
		{Role: modeltransport.RoleUser, Content: renderObservation(req.Snapshot)},
	}

	params := req.Params
	schemas := toolSchemas()

	retries := 0
	for attempt := 0; ; attempt++ {
		action, err := d.runTurnLoop(ctx, logger, req, &messages, schemas, params, maxTurns, &trace)
		if err == nil {
			trace.FinalAction = action
			trace.Messages = messages
			trace.Retries = retries
			trace.ElapsedMs = elapsedMs(d.clock, start)
			return action, trace, nil
		}

		logger.Warn("decision attempt failed", "attempt", attempt+1, "error", err)
		if attempt >= maxRetries {
			fallback := forcedFallback(req.Snapshot)
			trace.FinalAction = fallback
			trace.Messages = messages
			trace.Retries = retries
			trace.Error = err.Error()
			trace.ElapsedMs = elapsedMs(d.clock, start)
			return fallback, trace, nil
		}

		retries++
		messages = append(messages, modeltransport.Message{
			Role:    modeltransport.RoleUser,
			Content: fmt.Sprintf("Your last answer was invalid: %v. Respond again with only the JSON decision object.", err),
		})
	}
}

// runTurnLoop drives the bounded tool-call loop for one decision attempt: it
// keeps calling the model and executing whatever tools it asks for until the
// model answers without a tool call, or maxTurns is exhausted, then parses
// and validates the terminal answer.
func (d *Driver) runTurnLoop(ctx context.Context, logger *log.Logger, req DecisionRequest, messages *[]modeltransport.Message, schemas []modeltransport.ToolSchema, params modeltransport.Params, maxTurns int, trace *DecisionTrace) (AgentAction, error) {
	var resp modeltransport.Response

	for turn := 0; turn < maxTurns; turn++ {
		r, err := d.transport.Call(ctx, modeltransport.Request{
			Model:    req.Model,
			Messages: *messages,
			Tools:    schemas,
			Params:   params,
		})
		if err != nil {
			return AgentAction{}, fmt.Errorf("llmdriver: model call: %w", err)
		}
		resp = r
		trace.RawResponses = append(trace.RawResponses, r)

		assistantMsg := modeltransport.Message{
			Role:            modeltransport.RoleAssistant,
			Content:         r.Content,
			ToolCalls:       r.ToolCalls,
			ReasoningBlocks: r.ReasoningBlocks,
		}
		*messages = append(*messages, assistantMsg)

		if len(r.ToolCalls) == 0 {
			break
		}

		for _, tc := range r.ToolCalls {
			trace.ToolCalls = append(trace.ToolCalls, tc)
			logger.Debug("tool call", "name", tc.Name, "args", string(tc.Arguments))

			var result string
			if !d.tools.Valid(tc.Name) {
				result = fmt.Sprintf("error: unknown tool %q", tc.Name)
			} else {
				result = executeTool(tc.Name, tc.Arguments, req.Memory, req.Roster)
			}

			*messages = append(*messages, modeltransport.Message{
				Role:       modeltransport.RoleTool,
				Content:    result,
				ToolCallID: tc.ID,
				Name:       tc.Name,
			})
		}
	}

	decision, err := parseDecision(resp.Content, resp.ReasoningContent)
	if err != nil {
		return AgentAction{}, err
	}

	return validateDecision(decision, req.Snapshot)
}

// validateDecision maps a parsed rawDecision onto an AgentAction, rejecting
// anything not present in the snapshot's legal-action set and clamping a
// raise into [MinRaiseTo, MaxRaiseTo].
func validateDecision(d rawDecision, snap observation.Snapshot) (AgentAction, error) {
	kind := AgentActionKind(d.Action)
	switch kind {
	case ActionFold, ActionCheck, ActionCall, ActionRaise:
	default:
		return AgentAction{}, fmt.Errorf("llmdriver: unrecognized action %q", d.Action)
	}

	if !legalFor(kind, snap.LegalActions) {
		return AgentAction{}, fmt.Errorf("llmdriver: action %q is not legal (legal: %s)", kind, legalActionsList(snap.LegalActions))
	}

	action := AgentAction{Kind: kind, Reasoning: d.Reasoning}
	if kind == ActionRaise {
		if d.RaiseTo == nil {
			return AgentAction{}, fmt.Errorf("llmdriver: raise requires raiseTo")
		}
		raiseTo := *d.RaiseTo
		if raiseTo < snap.MinRaiseTo {
			raiseTo = snap.MinRaiseTo
		}
		if raiseTo > snap.MaxRaiseTo {
			raiseTo = snap.MaxRaiseTo
		}
		action.RaiseTo = raiseTo
	}
	return action, nil
}

func legalFor(kind AgentActionKind, legal []actionalgebra.Kind) bool {
	for _, k := range legal {
		switch kind {
		case ActionFold:
			if k == actionalgebra.Fold {
				return true
			}
		case ActionCheck:
			if k == actionalgebra.Check {
				return true
			}
		case ActionCall:
			if k == actionalgebra.Call {
				return true
			}
		case ActionRaise:
			if k == actionalgebra.Bet || k == actionalgebra.Raise {
				return true
			}
		}
	}
	return false
}

// forcedFallback implements §4.8 step 6: check if legal, otherwise fold.
func forcedFallback(snap observation.Snapshot) AgentAction {
	for _, k := range snap.LegalActions {
		if k == actionalgebra.Check {
			return AgentAction{Kind: ActionCheck, Forced: true}
		}
	}
	return AgentAction{Kind: ActionFold, Forced: true}
}

func elapsedMs(clock quartz.Clock, start time.Time) float64 {
	return float64(clock.Since(start)) / float64(time.Millisecond)
}
