package agentmanager

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/pokerbench/pokerbench/internal/actionalgebra"
	"github.com/pokerbench/pokerbench/internal/agentmemory"
	"github.com/pokerbench/pokerbench/internal/llmdriver"
	"github.com/pokerbench/pokerbench/internal/modeltransport"
	"github.com/pokerbench/pokerbench/internal/observation"
	"github.com/pokerbench/pokerbench/internal/pokerengine"
	"github.com/pokerbench/pokerbench/poker"
)

type fakeTransport struct {
	response modeltransport.Response
}

func (f *fakeTransport) Call(ctx context.Context, req modeltransport.Request) (modeltransport.Response, error) {
	return f.response, nil
}

func newTestManager(t *testing.T, resp modeltransport.Response) *Manager {
	t.Helper()
	logger := log.New(io.Discard)
	driver := llmdriver.New(&fakeTransport{response: resp}, logger, nil)
	return New(driver, logger)
}

func TestStartHandSeedsOnlyOwnHoleCards(t *testing.T) {
	t.Parallel()
	m := newTestManager(t, modeltransport.Response{Content: `{"action":"fold"}`})
	m.Register(0, "hero", AgentConfig{Model: "test/model"})
	m.Register(1, "villain", AgentConfig{Model: "test/model"})

	ac, _ := poker.ParseCard("As")
	kc, _ := poker.ParseCard("Kd")
	qc, _ := poker.ParseCard("Qh")
	jc, _ := poker.ParseCard("Jc")

	holeCards := map[int]poker.Hand{
		0: poker.Hand(ac) | poker.Hand(kc),
		1: poker.Hand(qc) | poker.Hand(jc),
	}
	positions := map[int]string{0: "BTN", 1: "BB"}

	m.StartHand(1, holeCards, positions)

	m.RecordAction(pokerengine.Preflop, 0, pokerengine.ActionRaise, 40)
	m.EndHand(map[int]EndResult{
		0: {Outcome: agentmemory.Won, ChipsWon: 40, Pot: 40, FinalStack: 1040},
		1: {Outcome: agentmemory.Lost, ChipsWon: -40, Pot: 40, FinalStack: 960},
	})

	heroHands := m.Memory(0).AllHands(agentmemory.Page{})
	if len(heroHands) != 1 {
		t.Fatalf("hero hands = %d, want 1", len(heroHands))
	}
	if heroHands[0].HoleCards != holeCards[0] {
		t.Errorf("hero hole cards leaked or wrong: got %v", heroHands[0].HoleCards)
	}

	villainHands := m.Memory(1).AllHands(agentmemory.Page{})
	if villainHands[0].HoleCards != holeCards[1] {
		t.Errorf("villain hole cards wrong: got %v", villainHands[0].HoleCards)
	}
	if villainHands[0].HoleCards == heroHands[0].HoleCards {
		t.Error("villain's memory got hero's hole cards")
	}
}

func TestRecordActionFansOutToEveryActiveSeat(t *testing.T) {
	t.Parallel()
	m := newTestManager(t, modeltransport.Response{Content: `{"action":"fold"}`})
	m.Register(0, "hero", AgentConfig{Model: "test/model"})
	m.Register(1, "villain", AgentConfig{Model: "test/model"})

	m.StartHand(1, map[int]poker.Hand{}, map[int]string{0: "BTN", 1: "BB"})
	m.RecordAction(pokerengine.Preflop, 1, pokerengine.ActionRaise, 40)
	m.EndHand(map[int]EndResult{
		0: {Outcome: agentmemory.Folded},
		1: {Outcome: agentmemory.Won, ChipsWon: 20, Pot: 20, FinalStack: 1020},
	})

	hands := m.Memory(0).ByOpponentSeat(1, agentmemory.Page{})
	if len(hands) != 1 {
		t.Fatalf("expected hero's memory to see villain's action, got %d hands", len(hands))
	}
}

func TestEliminateStopsFanOut(t *testing.T) {
	t.Parallel()
	m := newTestManager(t, modeltransport.Response{Content: `{"action":"fold"}`})
	m.Register(0, "hero", AgentConfig{Model: "test/model"})
	m.Register(1, "villain", AgentConfig{Model: "test/model"})

	m.Eliminate(1)
	if m.Active(1) {
		t.Error("Active(1) = true after Eliminate")
	}

	m.StartHand(2, map[int]poker.Hand{}, map[int]string{0: "BTN"})
	m.RecordAction(pokerengine.Preflop, 0, pokerengine.ActionCall, 20)
	m.EndHand(map[int]EndResult{0: {Outcome: agentmemory.Won}})

	if m.Memory(1).Len() != 0 {
		t.Errorf("eliminated seat's memory grew: Len() = %d", m.Memory(1).Len())
	}
	if m.Memory(0).Len() != 1 {
		t.Errorf("active seat's memory did not grow: Len() = %d", m.Memory(0).Len())
	}
}

func TestGetActionForwardsToDriver(t *testing.T) {
	t.Parallel()
	m := newTestManager(t, modeltransport.Response{Content: `{"action":"call"}`})
	m.Register(0, "hero", AgentConfig{Model: "test/model"})

	snap := observation.Snapshot{
		OwnSeat:      0,
		ToCall:       20,
		LegalActions: []actionalgebra.Kind{actionalgebra.Fold, actionalgebra.Call, actionalgebra.Raise},
	}
	action, _, err := m.GetAction(context.Background(), 0, snap)
	if err != nil {
		t.Fatalf("GetAction: %v", err)
	}
	if action.Kind != llmdriver.ActionCall {
		t.Errorf("Kind = %q, want call", action.Kind)
	}
}

func TestGetActionUnknownSeat(t *testing.T) {
	t.Parallel()
	m := newTestManager(t, modeltransport.Response{Content: `{"action":"fold"}`})
	_, _, err := m.GetAction(context.Background(), 5, observation.Snapshot{})
	if err == nil {
		t.Fatal("expected error for unregistered seat")
	}
}
