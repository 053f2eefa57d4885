// Package agentmanager holds the seat→agent and seat→memory maps for one
// tournament run and fans engine events out to every still-active seat's
// Agent Memory (§4.9). It owns no engine state itself — the Runner is the
// only caller that mutates a Hand — it is purely a routing layer between
// the engine's public event stream and each seat's private memory and
// LLM Driver call.
package agentmanager

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/pokerbench/pokerbench/internal/agentmemory"
	"github.com/pokerbench/pokerbench/internal/llmdriver"
	"github.com/pokerbench/pokerbench/internal/modeltransport"
	"github.com/pokerbench/pokerbench/internal/observation"
	"github.com/pokerbench/pokerbench/internal/pokerengine"
	"github.com/pokerbench/pokerbench/poker"
)

// AgentConfig is the per-seat model configuration a tournament config file
// supplies (§6's `agents[]` table), independent of any particular hand.
type AgentConfig struct {
	Model    string
	Params   modeltransport.Params
	MaxTurns int
}

type seatEntry struct {
	name     string
	config   AgentConfig
	memory   *agentmemory.Memory
	active   bool
}

// Manager routes engine events and decision requests for every seat in one
// run. It is not safe for concurrent use across runs — the spec requires
// each parallel run to construct its own Manager (§4.12).
type Manager struct {
	logger *log.Logger
	driver *llmdriver.Driver
	seats  map[int]*seatEntry
}

// New creates an empty Manager bound to a shared Driver. The Driver itself
// has no per-seat state, so one Driver instance may be shared across many
// Managers/runs; only the per-seat memory and config live here.
func New(driver *llmdriver.Driver, logger *log.Logger) *Manager {
	return &Manager{
		logger: logger.WithPrefix("agentmanager"),
		driver: driver,
		seats:  make(map[int]*seatEntry),
	}
}

// Register adds seat to the active roster with the given name and model
// config, and gives it a fresh Agent Memory. Call once per seat before the
// first hand.
func (m *Manager) Register(seat int, name string, cfg AgentConfig) {
	m.seats[seat] = &seatEntry{
		name:   name,
		config: cfg,
		memory: agentmemory.New(name),
		active: true,
	}
}

// roster returns the seat-number -> name map for every seat ever
// registered (eliminated seats keep their name for recall_opponent_actions
// tool lookups against historical hands).
func (m *Manager) roster() map[int]string {
	out := make(map[int]string, len(m.seats))
	for seat, e := range m.seats {
		out[seat] = e.name
	}
	return out
}

// activeSeats returns every seat still in the tournament, in seat order.
func (m *Manager) activeSeats() []int {
	seats := make([]int, 0, len(m.seats))
	for seat, e := range m.seats {
		if e.active {
			seats = append(seats, seat)
		}
	}
	for i := 1; i < len(seats); i++ {
		for j := i; j > 0 && seats[j-1] > seats[j]; j-- {
			seats[j-1], seats[j] = seats[j], seats[j-1]
		}
	}
	return seats
}

// StartHand opens a new in-progress HandRecord in every active seat's
// memory, each seeded with that seat's own hole cards and position -
// memory never sees another seat's cards.
func (m *Manager) StartHand(handNumber int, holeCards map[int]poker.Hand, positions map[int]string) {
	for _, seat := range m.activeSeats() {
		e := m.seats[seat]
		e.memory.StartHand(handNumber, holeCards[seat], positions[seat])
	}
}

// RecordAction fans one public action out to every active seat's memory,
// own seat included - an agent's memory of its own past actions is built
// from the same public stream as its opponents'.
func (m *Manager) RecordAction(street pokerengine.Street, seat int, kind pokerengine.ActionKind, amount int) {
	name := ""
	if e, ok := m.seats[seat]; ok {
		name = e.name
	}
	for _, s := range m.activeSeats() {
		m.seats[s].memory.RecordAction(street, seat, name, kind, amount)
	}
}

// UpdateCommunity fans a street's board update out to every active seat.
func (m *Manager) UpdateCommunity(cards poker.Hand) {
	for _, seat := range m.activeSeats() {
		m.seats[seat].memory.UpdateCommunity(cards)
	}
}

// RecordShowdown fans a revealed hand out to every active seat, including
// the revealing seat itself.
func (m *Manager) RecordShowdown(seat int, cards poker.Hand) {
	for _, s := range m.activeSeats() {
		m.seats[s].memory.RecordShowdown(seat, cards)
	}
}

// EndResult is one seat's outcome for a completed hand, supplied by the
// Runner once payouts are computed.
type EndResult struct {
	Outcome    agentmemory.Outcome
	ChipsWon   int
	Pot        int
	FinalStack int
}

// EndHand closes the in-progress hand in every active seat's memory with
// that seat's own result.
func (m *Manager) EndHand(results map[int]EndResult) {
	for _, seat := range m.activeSeats() {
		r := results[seat]
		m.seats[seat].memory.EndHand(r.Outcome, r.ChipsWon, r.Pot, r.FinalStack)
	}
}

// Eliminate moves seat from active to eliminated. Its memory is kept (for
// historical recall by other seats' tools) but it stops receiving further
// StartHand/RecordAction/UpdateCommunity/RecordShowdown/EndHand fan-out.
func (m *Manager) Eliminate(seat int) {
	if e, ok := m.seats[seat]; ok {
		e.active = false
	}
}

// GetAction forwards seat's current decision to its configured model via
// the shared Driver, assembling the DecisionRequest from the seat's own
// config, memory, and the full-tournament roster.
func (m *Manager) GetAction(ctx context.Context, seat int, snap observation.Snapshot) (llmdriver.AgentAction, llmdriver.DecisionTrace, error) {
	e, ok := m.seats[seat]
	if !ok {
		return llmdriver.AgentAction{}, llmdriver.DecisionTrace{}, fmt.Errorf("agentmanager: no agent registered for seat %d", seat)
	}

	return m.driver.Decide(ctx, llmdriver.DecisionRequest{
		Model:      e.config.Model,
		SeatName:   e.name,
		Snapshot:   snap,
		Memory:     e.memory,
		Roster:     m.roster(),
		Params:     e.config.Params,
		MaxTurns:   e.config.MaxTurns,
	})
}

// Memory returns seat's Agent Memory, for reporting or replay tooling.
func (m *Manager) Memory(seat int) *agentmemory.Memory {
	e, ok := m.seats[seat]
	if !ok {
		return nil
	}
	return e.memory
}

// Active reports whether seat is still in the tournament.
func (m *Manager) Active(seat int) bool {
	e, ok := m.seats[seat]
	return ok && e.active
}
