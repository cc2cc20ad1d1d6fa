package world

import (
	"fmt"
	"math"
	"sort"
)

// ElementID identifies one world entity. Ids are allocated once per world
// and never reused, so a removed robot's id stays dead.
type ElementID uint64

type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec3) Scale(f float64) Vec3 { return Vec3{v.X * f, v.Y * f, v.Z * f} }

func (v Vec3) Len() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

func (v Vec3) Dist(o Vec3) float64 { return v.Sub(o).Len() }

func (v Vec3) Array() [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

func vecFromArray(a [3]float64) Vec3 { return Vec3{a[0], a[1], a[2]} }

// Color is an RGB triple with components in [0, 1].
type Color struct {
	R, G, B float64
}

func (c Color) Array() [3]float64 { return [3]float64{c.R, c.G, c.B} }

// Mix returns the per-channel average of two colors.
func (c Color) Mix(o Color) Color {
	return Color{(c.R + o.R) / 2, (c.G + o.G) / 2, (c.B + o.B) / 2}
}

func colorFromArray(a [3]float64) Color { return Color{a[0], a[1], a[2]} }

func validColor(c Color) bool {
	ok := func(x float64) bool { return x >= 0 && x <= 1 }
	return ok(c.R) && ok(c.G) && ok(c.B)
}

// RobotState tracks what a robot did in the most recent step. The numeric
// order is part of the observation encoding and must not change.
type RobotState uint8

const (
	StateIdle RobotState = iota
	StateMoving
	StateCollecting
	StateReproducing
	StateDead
)

func (s RobotState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateMoving:
		return "MOVING"
	case StateCollecting:
		return "COLLECTING"
	case StateReproducing:
		return "REPRODUCING"
	case StateDead:
		return "DEAD"
	}
	return fmt.Sprintf("STATE(%d)", uint8(s))
}

func parseRobotState(s string) (RobotState, bool) {
	switch s {
	case "IDLE":
		return StateIdle, true
	case "MOVING":
		return StateMoving, true
	case "COLLECTING":
		return StateCollecting, true
	case "REPRODUCING":
		return StateReproducing, true
	case "DEAD":
		return StateDead, true
	}
	return StateIdle, false
}

type ResourceType string

const (
	ResourceEnergy   ResourceType = "ENERGY"
	ResourceMaterial ResourceType = "MATERIAL"
	ResourceSpecial  ResourceType = "SPECIAL"
)

func validResourceType(t ResourceType) bool {
	switch t {
	case ResourceEnergy, ResourceMaterial, ResourceSpecial:
		return true
	}
	return false
}

// Strength grades a connection between two robots.
type Strength uint8

const (
	StrengthNone Strength = iota
	StrengthWeak
	StrengthMedium
	StrengthStrong
	StrengthPermanent
)

func (s Strength) String() string {
	switch s {
	case StrengthNone:
		return "NONE"
	case StrengthWeak:
		return "WEAK"
	case StrengthMedium:
		return "MEDIUM"
	case StrengthStrong:
		return "STRONG"
	case StrengthPermanent:
		return "PERMANENT"
	}
	return fmt.Sprintf("STRENGTH(%d)", uint8(s))
}

func sortIDs(ids []ElementID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

// cellKey addresses one cell of the integer lattice used for collision
// checks and the spatial index.
type cellKey struct {
	X, Y, Z int
}

// occupiedCell maps a free position onto the lattice cell it occupies.
func occupiedCell(p Vec3) cellKey {
	return cellKey{int(math.Round(p.X)), int(math.Round(p.Y)), int(math.Round(p.Z))}
}
