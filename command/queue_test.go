package command

import (
	"testing"

	"github.com/Mu-L/permafrost-engine/components"
)

func TestDrainFIFOOrder(t *testing.T) {
	q := NewQueue(8)
	q.Push(Stop(1))
	q.Push(Stop(2))
	q.Push(Stop(3))

	drained := q.Drain()
	if len(drained) != 3 {
		t.Fatalf("expected 3 commands, got %d", len(drained))
	}
	want := []uint32{1, 2, 3}
	for i, cmd := range drained {
		if cmd.UID != want[i] {
			t.Errorf("index %d: expected uid %d, got %d", i, want[i], cmd.UID)
		}
	}
}

func TestDrainEmptiesQueue(t *testing.T) {
	q := NewQueue(8)
	q.Push(Stop(1))
	q.Drain()

	if q.Len() != 0 {
		t.Errorf("expected empty queue after drain, got len=%d", q.Len())
	}
	if len(q.Drain()) != 0 {
		t.Error("expected second drain to return no commands")
	}
}

func TestSnoopMostRecentFirstWithoutDraining(t *testing.T) {
	q := NewQueue(8)
	q.Push(Stop(1))
	q.Push(Stop(2))
	q.Push(Stop(3))

	snooped := q.Snoop()
	want := []uint32{3, 2, 1}
	for i, cmd := range snooped {
		if cmd.UID != want[i] {
			t.Errorf("index %d: expected uid %d, got %d", i, want[i], cmd.UID)
		}
	}

	if q.Len() != 3 {
		t.Errorf("expected Snoop to leave queue intact, got len=%d", q.Len())
	}
}

func TestPushDropsWhenFull(t *testing.T) {
	q := NewQueue(2)
	if !q.Push(Stop(1)) {
		t.Fatal("expected first push to succeed")
	}
	if !q.Push(Stop(2)) {
		t.Fatal("expected second push to succeed")
	}
	if q.Push(Stop(3)) {
		t.Fatal("expected third push to be dropped on a full ring")
	}
	if q.Dropped() != 1 {
		t.Errorf("expected 1 dropped command, got %d", q.Dropped())
	}

	drained := q.Drain()
	if len(drained) != 2 || drained[0].UID != 1 || drained[1].UID != 2 {
		t.Errorf("expected the two successfully-pushed commands to survive, got %v", drained)
	}
}

func TestSetDestCommandCarriesFields(t *testing.T) {
	xz := components.Position{X: 10, Z: 20}
	cmd := SetDest(42, xz, true)

	if cmd.Kind != KindSetDest {
		t.Errorf("expected KindSetDest, got %v", cmd.Kind)
	}
	if cmd.UID != 42 || cmd.Pos != xz || !cmd.Attack {
		t.Errorf("unexpected command fields: %+v", cmd)
	}
}

func TestMakeFlocksCopiesSelection(t *testing.T) {
	sel := []uint32{1, 2, 3}
	cmd := MakeFlocks(sel, components.Position{X: 1, Z: 1}, 0, FormationRank, false)

	sel[0] = 999
	if cmd.Selection[0] == 999 {
		t.Error("expected MakeFlocks to copy the selection slice, not alias it")
	}
	if len(cmd.Selection) != 3 {
		t.Errorf("expected selection length 3, got %d", len(cmd.Selection))
	}
}
