package agentdb

import (
	"testing"

	"github.com/Mu-L/permafrost-engine/components"
	"github.com/Mu-L/permafrost-engine/snapshot"
)

func TestAddInitializesArrivedAndBlocking(t *testing.T) {
	db := NewDB()
	db.Add(1, components.Position{X: 5, Z: 5}, 1.0, 0)

	if db.Len() != 1 {
		t.Fatalf("expected 1 agent, got %d", db.Len())
	}

	m := db.Movestate(1)
	if m == nil {
		t.Fatal("expected movestate for agent 1")
	}
	if m.State != components.StateArrived {
		t.Errorf("expected StateArrived, got %v", m.State)
	}
	if !m.Blocking {
		t.Error("expected new agent to be blocking")
	}
	if m.LastStopPos.X != 5 {
		t.Errorf("expected LastStopPos seeded from initial position, got %v", m.LastStopPos)
	}
}

func TestAddIsIdempotentForExistingUID(t *testing.T) {
	db := NewDB()
	db.Add(1, components.Position{X: 0, Z: 0}, 1, 0)
	db.Add(1, components.Position{X: 99, Z: 99}, 1, 0)

	if db.Len() != 1 {
		t.Fatalf("expected Add to be a no-op for an existing uid, got %d agents", db.Len())
	}
	if db.Position(1).X != 0 {
		t.Error("expected the original position to be retained")
	}
}

func TestRemoveDropsAgent(t *testing.T) {
	db := NewDB()
	db.Add(1, components.Position{}, 1, 0)

	if !db.Remove(1) {
		t.Fatal("expected Remove to report success")
	}
	if db.Len() != 0 {
		t.Errorf("expected 0 agents after remove, got %d", db.Len())
	}
	if db.Remove(1) {
		t.Error("expected second Remove of the same uid to report failure")
	}
}

func TestForEachAgentMatchesLiveComponents(t *testing.T) {
	db := NewDB()
	db.Add(1, components.Position{X: 1, Z: 2}, 3, 7)
	db.SetDiplomacy(snapshot.DiplomacyTable{})

	var seen []snapshot.AgentView
	db.ForEachAgent(func(a snapshot.AgentView) {
		seen = append(seen, a)
	})

	if len(seen) != 1 {
		t.Fatalf("expected 1 agent view, got %d", len(seen))
	}
	if seen[0].UID != 1 || seen[0].Pos.X != 1 || seen[0].Faction != 7 || seen[0].Radius != 3 {
		t.Errorf("unexpected agent view: %+v", seen[0])
	}
}

func TestVelocityPointerMutatesLiveComponent(t *testing.T) {
	db := NewDB()
	db.Add(1, components.Position{}, 1, 0)

	vel := db.Velocity(1)
	vel.X = 42

	if db.Velocity(1).X != 42 {
		t.Error("expected mutation through the returned pointer to persist")
	}
}

func TestMissingUIDAccessorsReturnNil(t *testing.T) {
	db := NewDB()
	if db.Position(999) != nil {
		t.Error("expected nil Position for unknown uid")
	}
	if db.Movestate(999) != nil {
		t.Error("expected nil Movestate for unknown uid")
	}
	if _, ok := db.Entity(999); ok {
		t.Error("expected Entity lookup to fail for unknown uid")
	}
}
