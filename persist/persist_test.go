package persist

import (
	"bytes"
	"testing"

	"github.com/Mu-L/permafrost-engine/components"
)

func sampleState() *PersistedState {
	return &PersistedState{
		ClickMoveEnabled: true,
		Flocks: []FlockRecord{
			{NumEntities: 2, EntityUIDs: []uint32{1, 2}, TargetXZ: components.Position{X: 10, Z: 20}, DestID: 7},
		},
		Agents: []AgentRecord{
			{
				UID:      1,
				State:    components.StateMoving,
				MaxSpeed: 5,
				Velocity: components.Velocity{X: 1, Z: 0},
				NextPos:  components.Position{X: 11, Z: 21},
				PrevPos:  components.Position{X: 10, Z: 20},
				NextRot:  0.5,
				PrevRot:  0.4,
				Step:     0.25,
				Left:     3,
			},
		},
	}
}

func TestRoundTripSerializeClearLoadSerialize(t *testing.T) {
	state := sampleState()

	var buf1 bytes.Buffer
	if err := Save(&buf1, state); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(bytes.NewReader(buf1.Bytes()))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	var buf2 bytes.Buffer
	if err := Save(&buf2, loaded); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	if !bytes.Equal(buf1.Bytes(), buf2.Bytes()) {
		t.Errorf("expected byte-identical round trip, got:\n%s\n---\n%s", buf1.String(), buf2.String())
	}
}

func TestApplyToReconstructsLastStopPosFromPosition(t *testing.T) {
	rec := sampleState().Agents[0]
	var m components.Movestate

	currentPos := components.Position{X: 99, Z: 42}
	rec.ApplyTo(&m, currentPos)

	if m.LastStopPos != currentPos {
		t.Errorf("expected LastStopPos reconstructed from current position %v, got %v", currentPos, m.LastStopPos)
	}
	if m.State != components.StateMoving {
		t.Errorf("expected state restored, got %v", m.State)
	}
	if m.NextPos != rec.NextPos {
		t.Errorf("expected NextPos restored, got %v", m.NextPos)
	}
}

func TestFromMovestateExcludesLastStopPos(t *testing.T) {
	m := &components.Movestate{
		State:       components.StateArrived,
		LastStopPos: components.Position{X: 1234, Z: 5678},
	}
	rec := FromMovestate(1, 5, components.Velocity{}, m)

	var buf bytes.Buffer
	if err := Save(&buf, &PersistedState{Agents: []AgentRecord{rec}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if bytes.Contains(buf.Bytes(), []byte("1234")) {
		t.Error("expected LastStopPos value not to appear in the encoded output")
	}
}
