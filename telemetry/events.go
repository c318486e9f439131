// Package telemetry provides tick performance timing, stats aggregation,
// and CSV run output for the movement core.
package telemetry

import "log/slog"

// EventType identifies telemetry events.
type EventType uint8

const (
	EventArrived EventType = iota
	EventStateChange
	EventRouteFailed
	EventCommandDropped
	EventFormationDisbanded
)

func (t EventType) String() string {
	switch t {
	case EventArrived:
		return "arrived"
	case EventStateChange:
		return "state_change"
	case EventRouteFailed:
		return "route_failed"
	case EventCommandDropped:
		return "command_dropped"
	case EventFormationDisbanded:
		return "formation_disbanded"
	default:
		return "unknown"
	}
}

// Event represents a single telemetry event.
type Event struct {
	Type EventType
	Tick int32
	UID  uint32

	// Optional fields depending on event type
	FromState uint8 // for state-change events (§4.9)
	ToState   uint8
}

// Log emits the event as a structured slog record on logger, the narration
// counterpart to TickStats.LogStats's window-level summary: one line per
// notable per-agent occurrence rather than a windowed aggregate.
func (e Event) Log(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("event", "type", e.Type.String(), "tick", e.Tick, "uid", e.UID,
		"from_state", e.FromState, "to_state", e.ToState)
}
