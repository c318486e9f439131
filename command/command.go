// Package command implements the deferred command queue of §4.7: mutating
// operations issued by callers are enqueued and applied at tick boundaries,
// decoupling callers from the movement tick's owning thread.
package command

import "github.com/Mu-L/permafrost-engine/components"

// Kind identifies which command variant a Command carries, mirroring the
// field package's Target sum-type idiom (a single tagged struct rather
// than an interface hierarchy, since every command is a small, fully
// data-describable operation with no construction algorithm attached).
type Kind uint8

const (
	KindAdd Kind = iota
	KindRemove
	KindStop
	KindSetDest
	KindChangeDirection
	KindSetEnterRange
	KindSetSeekEnemies
	KindSetSurroundEntity
	KindUpdatePos
	KindUpdateFactionID
	KindUpdateSelectionRadius
	KindSetMaxSpeed
	KindMakeFlocks
	KindUnblock
	KindBlockAt
)

// FormationType mirrors formation.Type without importing the formation
// package, keeping command free of a dependency on the planner.
type FormationType uint8

const (
	FormationNone FormationType = iota
	FormationRank
	FormationColumn
)

// Command is a single deferred mutating operation (§4.7, §6). Only the
// fields relevant to Kind are meaningful; the rest are zero.
type Command struct {
	Kind Kind

	UID    uint32
	Target uint32 // target_uid, for commands that reference another agent

	Pos components.Position

	Radius   float32
	OldFaction uint8
	NewFaction uint8

	MaxSpeed float32
	Heading  float32 // ChangeDirection's target heading (radians)
	Range    float32 // SetEnterRange's distance threshold

	Attack bool

	// MakeFlocks fields (§4.7's MakeFlocks / §6's ArrangeInFormation).
	Selection   []uint32
	Orientation float32
	FormType    FormationType
}

// Add enqueues an Add(uid, pos, radius, faction_id) command.
func Add(uid uint32, pos components.Position, radius float32, faction uint8) Command {
	return Command{Kind: KindAdd, UID: uid, Pos: pos, Radius: radius, NewFaction: faction}
}

// Remove enqueues a Remove(uid) command.
func Remove(uid uint32) Command {
	return Command{Kind: KindRemove, UID: uid}
}

// Stop enqueues a Stop(uid) command.
func Stop(uid uint32) Command {
	return Command{Kind: KindStop, UID: uid}
}

// SetDest enqueues a SetDest(uid, xz, attack) command.
func SetDest(uid uint32, xz components.Position, attack bool) Command {
	return Command{Kind: KindSetDest, UID: uid, Pos: xz, Attack: attack}
}

// ChangeDirection enqueues a ChangeDirection(uid, heading) command. Heading
// generalizes §6's quaternion argument to the radians already carried by
// components.Rotation.
func ChangeDirection(uid uint32, heading float32) Command {
	return Command{Kind: KindChangeDirection, UID: uid, Heading: heading}
}

// SetEnterRange enqueues a SetEnterRange(uid, target, range) command.
func SetEnterRange(uid, target uint32, rng float32) Command {
	return Command{Kind: KindSetEnterRange, UID: uid, Target: target, Range: rng}
}

// SetSeekEnemies enqueues a SetSeekEnemies(uid) command.
func SetSeekEnemies(uid uint32) Command {
	return Command{Kind: KindSetSeekEnemies, UID: uid}
}

// SetSurroundEntity enqueues a SetSurroundEntity(uid, target) command.
func SetSurroundEntity(uid, target uint32) Command {
	return Command{Kind: KindSetSurroundEntity, UID: uid, Target: target}
}

// UpdatePos enqueues an UpdatePos(uid, xz) command.
func UpdatePos(uid uint32, xz components.Position) Command {
	return Command{Kind: KindUpdatePos, UID: uid, Pos: xz}
}

// UpdateFactionID enqueues an UpdateFactionId(uid, old, new) command.
func UpdateFactionID(uid uint32, old, new uint8) Command {
	return Command{Kind: KindUpdateFactionID, UID: uid, OldFaction: old, NewFaction: new}
}

// UpdateSelectionRadius enqueues an UpdateSelectionRadius(uid, r) command.
func UpdateSelectionRadius(uid uint32, r float32) Command {
	return Command{Kind: KindUpdateSelectionRadius, UID: uid, Radius: r}
}

// SetMaxSpeed enqueues a SetMaxSpeed(uid, v) command.
func SetMaxSpeed(uid uint32, v float32) Command {
	return Command{Kind: KindSetMaxSpeed, UID: uid, MaxSpeed: v}
}

// MakeFlocks enqueues a MakeFlocks(selection, target, orientation, type,
// attack) command (§4.7), the same operation §6 names ArrangeInFormation/
// AttackInFormation when FormType/Attack are set.
func MakeFlocks(selection []uint32, target components.Position, orientation float32, formType FormationType, attack bool) Command {
	sel := make([]uint32, len(selection))
	copy(sel, selection)
	return Command{
		Kind:        KindMakeFlocks,
		Selection:   sel,
		Pos:         target,
		Orientation: orientation,
		FormType:    formType,
		Attack:      attack,
	}
}

// Unblock enqueues an Unblock(uid) command.
func Unblock(uid uint32) Command {
	return Command{Kind: KindUnblock, UID: uid}
}

// BlockAt enqueues a BlockAt(uid, pos) command.
func BlockAt(uid uint32, pos components.Position) Command {
	return Command{Kind: KindBlockAt, UID: uid, Pos: pos}
}
