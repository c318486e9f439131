package snapshot

import (
	"testing"

	"github.com/Mu-L/permafrost-engine/components"
)

type fakeSource struct {
	agents []AgentView
}

func (f *fakeSource) ForEachAgent(fn func(AgentView)) {
	for _, a := range f.agents {
		fn(a)
	}
}

func (f *fakeSource) Diplomacy() DiplomacyTable {
	var d DiplomacyTable
	d.Hostile[0][1] = true
	d.Hostile[1][0] = true
	return d
}

func TestBuildDeepCopiesAgents(t *testing.T) {
	src := &fakeSource{agents: []AgentView{
		{UID: 1, Pos: components.Position{X: 5, Z: 5}, Faction: 0},
		{UID: 2, Pos: components.Position{X: 50, Z: 50}, Faction: 1},
	}}

	snap := Build(src, 10, 16, 128, 128)
	if snap.Len() != 2 {
		t.Fatalf("expected 2 agents, got %d", snap.Len())
	}

	a, ok := snap.Agent(1)
	if !ok || a.Pos.X != 5 {
		t.Errorf("expected agent 1 at x=5, got %+v ok=%v", a, ok)
	}

	// Mutating the source slice after Build must not affect the snapshot.
	src.agents[0].Pos.X = 999
	a, _ = snap.Agent(1)
	if a.Pos.X == 999 {
		t.Error("snapshot should be a deep copy, not alias the source")
	}
}

func TestDiplomacyIsEnemy(t *testing.T) {
	src := &fakeSource{}
	snap := Build(src, 0, 16, 128, 128)

	d := snap.Diplomacy()
	if !d.IsEnemy(0, 1) || !d.IsEnemy(1, 0) {
		t.Error("expected factions 0 and 1 to be mutually hostile")
	}
	if d.IsEnemy(0, 0) {
		t.Error("expected faction 0 not hostile to itself")
	}
}

func TestEntsInRectFindsOnlyAgentsInside(t *testing.T) {
	src := &fakeSource{agents: []AgentView{
		{UID: 1, Pos: components.Position{X: 5, Z: 5}},
		{UID: 2, Pos: components.Position{X: 50, Z: 50}},
		{UID: 3, Pos: components.Position{X: 8, Z: 8}},
	}}

	snap := Build(src, 0, 16, 128, 128)
	found := snap.Index().EntsInRect(0, 0, 10, 10)

	if len(found) != 2 {
		t.Fatalf("expected 2 agents in rect, got %d: %v", len(found), found)
	}
	seen := map[uint32]bool{}
	for _, uid := range found {
		seen[uid] = true
	}
	if !seen[1] || !seen[3] {
		t.Errorf("expected uids 1 and 3 in rect, got %v", found)
	}
	if seen[2] {
		t.Error("expected uid 2 to be excluded from the rect")
	}
}

func TestEntsInRectEmptyWhenNoneMatch(t *testing.T) {
	src := &fakeSource{agents: []AgentView{
		{UID: 1, Pos: components.Position{X: 100, Z: 100}},
	}}
	snap := Build(src, 0, 16, 128, 128)

	found := snap.Index().EntsInRect(0, 0, 10, 10)
	if len(found) != 0 {
		t.Errorf("expected no agents in rect, got %v", found)
	}
}
