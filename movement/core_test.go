package movement

import (
	"testing"

	"github.com/Mu-L/permafrost-engine/command"
	"github.com/Mu-L/permafrost-engine/components"
	"github.com/Mu-L/permafrost-engine/config"
	"github.com/Mu-L/permafrost-engine/navgrid"
)

// newTestCore builds a Core over a single fully-open 4x4-chunk, 16x16-tile
// layer-Foot grid, mirroring §8 scenario 1's "Map 4x4 chunks" setup.
func newTestCore(t *testing.T) *Core {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	res := navgrid.Resolution{ChunksWide: 4, ChunksHigh: 4, TileW: 16, TileH: 16, TileSize: 1}
	grid := navgrid.NewGrid(res, navgrid.LayerFoot)
	for coord := range grid.Chunks {
		grid.MarkDirty(coord)
	}
	navgrid.RelabelPass(grid, 0, 0)

	var grids [navgrid.NumLayers]*navgrid.Grid
	grids[navgrid.LayerFoot] = grid

	c := NewCore(cfg, grids, 0, 0, nil)
	c.RefreshPortals(0)
	return c
}

// TestSingleAgentOpenFieldArrives is §8 scenario 1: a single agent in an
// open field reaches its destination and settles into StateArrived within
// a bounded number of ticks.
func TestSingleAgentOpenFieldArrives(t *testing.T) {
	c := newTestCore(t)

	const uid = 1
	start := components.Position{X: 5.5, Z: 5.5}
	dest := components.Position{X: 48.5, Z: 48.5}

	c.Cmds.Push(command.Add(uid, start, 1.0, 0))
	c.Cmds.Push(command.SetDest(uid, dest, false))

	arrived := false
	for i := 0; i < 2000 && !arrived; i++ {
		c.Tick()
		m := c.Agents.Movestate(uid)
		if m != nil && m.State == components.StateArrived {
			arrived = true
		}
	}
	if !arrived {
		t.Fatalf("agent never reached StateArrived")
	}

	pos := c.Agents.Position(uid)
	if pos == nil {
		t.Fatal("agent disappeared")
	}
	d := distanceOf(*pos, dest)
	if d > 2*ArrivalRadius(1.0) {
		t.Errorf("expected agent within ~%v of target, got distance %v", ArrivalRadius(1.0), d)
	}
}

// TestStopIdempotent is §8's Idempotence-of-Stop law: after Stop(u) the
// next tick leaves u Arrived, and a second Stop is a no-op.
func TestStopIdempotent(t *testing.T) {
	c := newTestCore(t)

	const uid = 7
	start := components.Position{X: 10, Z: 10}
	c.Cmds.Push(command.Add(uid, start, 1.0, 0))
	c.Cmds.Push(command.SetDest(uid, components.Position{X: 40, Z: 40}, false))
	c.Tick()
	for i := 0; i < 5; i++ {
		c.Tick()
	}

	c.Cmds.Push(command.Stop(uid))
	c.Tick()

	m := c.Agents.Movestate(uid)
	if m == nil {
		t.Fatal("agent missing")
	}
	if m.State != components.StateArrived {
		t.Fatalf("expected Arrived after Stop, got %v", m.State)
	}
	if !m.Blocking {
		t.Error("expected Blocking=true after Stop, per §8's state<=>blocking invariant")
	}

	c.Cmds.Push(command.Stop(uid))
	c.Tick()
	m = c.Agents.Movestate(uid)
	if m.State != components.StateArrived {
		t.Fatalf("second Stop should remain a no-op Arrived state, got %v", m.State)
	}
}

// TestStillBlockingInvariant checks §8's "state in {Arrived,Waiting} <=>
// velocity~=0 <=> blocking=true" across a short run with a moving agent.
func TestStillBlockingInvariant(t *testing.T) {
	c := newTestCore(t)

	const uid = 3
	c.Cmds.Push(command.Add(uid, components.Position{X: 5, Z: 5}, 1.0, 0))
	c.Cmds.Push(command.SetDest(uid, components.Position{X: 60, Z: 60}, false))

	for i := 0; i < 50; i++ {
		c.Tick()
		m := c.Agents.Movestate(uid)
		if m == nil {
			t.Fatal("agent missing mid-run")
		}
		still := m.IsStill()
		if still != m.Blocking {
			t.Fatalf("tick %d: IsStill()=%v but Blocking=%v", i, still, m.Blocking)
		}
	}
}

// TestAddRemoveLifecycle checks §3's Lifecycle: Add registers a blocker in
// Arrived state, Remove drops the Movestate entirely.
func TestAddRemoveLifecycle(t *testing.T) {
	c := newTestCore(t)

	const uid = 42
	c.Cmds.Push(command.Add(uid, components.Position{X: 2, Z: 2}, 1.0, 0))
	c.Tick()

	m := c.Agents.Movestate(uid)
	if m == nil {
		t.Fatal("expected agent to exist after Add")
	}
	if m.State != components.StateArrived {
		t.Errorf("expected new agent to start Arrived, got %v", m.State)
	}

	c.Cmds.Push(command.Remove(uid))
	c.Tick()
	if c.Agents.Movestate(uid) != nil {
		t.Error("expected Movestate to be dropped after Remove")
	}
}
