// Package brain holds the decision policies that drive robots.
//
// A Brain sees only an Observation and returns an Action; it never touches
// world state. Policies are registered by kind so snapshots and setup files
// can reconstruct them from an exported parameter blob.
package brain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
)

// Action is one step of intent. The numeric values are part of the exported
// parameter format and must not be reordered.
type Action int

const (
	Stay Action = iota
	MoveXPos
	MoveXNeg
	MoveZPos
	MoveZNeg
	MoveYPos
	MoveYNeg

	numActions
)

// Valid reports whether a is one of the defined actions.
func (a Action) Valid() bool { return a >= Stay && a < numActions }

// Delta returns the unit displacement for a movement action. Stay and
// invalid actions return zeros.
func (a Action) Delta() (dx, dy, dz float64) {
	switch a {
	case MoveXPos:
		return 1, 0, 0
	case MoveXNeg:
		return -1, 0, 0
	case MoveZPos:
		return 0, 0, 1
	case MoveZNeg:
		return 0, 0, -1
	case MoveYPos:
		return 0, 1, 0
	case MoveYNeg:
		return 0, -1, 0
	}
	return 0, 0, 0
}

func (a Action) String() string {
	switch a {
	case Stay:
		return "stay"
	case MoveXPos:
		return "move+x"
	case MoveXNeg:
		return "move-x"
	case MoveZPos:
		return "move+z"
	case MoveZNeg:
		return "move-z"
	case MoveYPos:
		return "move+y"
	case MoveYNeg:
		return "move-y"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// EntitySummary describes one nearby entity relative to the observer.
type EntitySummary struct {
	ID       uint64
	DX       float64
	DY       float64
	DZ       float64
	Distance float64
	Value    float64
}

// Observation is the read-only view a robot gets of itself and its
// surroundings. Nearest* fields are nil when nothing is in sensor range.
type Observation struct {
	Energy    float64
	MaxEnergy float64
	X         float64
	Y         float64
	Z         float64

	NearestResource *EntitySummary
	NearestRobot    *EntitySummary

	Connections int
	State       int
}

// Vector flattens the observation into the fixed 9-input layout consumed by
// neural policies: resource offset, robot offset, normalized energy,
// normalized connection count, normalized state.
func (o Observation) Vector() []float64 {
	v := make([]float64, 9)
	if o.NearestResource != nil {
		v[0] = o.NearestResource.DX
		v[1] = o.NearestResource.DY
		v[2] = o.NearestResource.DZ
	}
	if o.NearestRobot != nil {
		v[3] = o.NearestRobot.DX
		v[4] = o.NearestRobot.DY
		v[5] = o.NearestRobot.DZ
	}
	if o.MaxEnergy > 0 {
		v[6] = o.Energy / o.MaxEnergy
	}
	v[7] = float64(o.Connections) / 10.0
	v[8] = float64(o.State) / 4.0
	return v
}

// Brain decides one action per step.
type Brain interface {
	// Kind identifies the policy for registry lookup and persistence.
	Kind() string
	// Decide picks the next action. Implementations must not retain obs.
	Decide(obs Observation) (Action, error)
	// Clone returns an independent copy with identical parameters.
	Clone() Brain
	// Export serializes the parameters for Kind()-keyed reconstruction.
	Export() (json.RawMessage, error)
}

// Merger is implemented by brains that can combine parameters with a
// same-kind partner during crossover reproduction.
type Merger interface {
	Merge(other Brain) (Brain, error)
}

// Mutator is implemented by brains whose parameters can be perturbed in
// place after cloning or merging.
type Mutator interface {
	Mutate(rng *rand.Rand, strength float64)
}

// ErrUnknownKind is returned by New for kinds with no registered factory.
var ErrUnknownKind = errors.New("unknown brain kind")

// Factory builds a brain from exported parameters. A nil or empty params
// blob must produce a usable default instance.
type Factory func(params json.RawMessage) (Brain, error)

var registry = map[string]Factory{}

// Register installs a factory for kind. It must be called from init and
// panics on duplicates.
func Register(kind string, f Factory) {
	if _, dup := registry[kind]; dup {
		panic("brain: duplicate kind " + kind)
	}
	registry[kind] = f
}

// New constructs a brain of the given kind from exported parameters.
func New(kind string, params json.RawMessage) (Brain, error) {
	f, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return f(params)
}

// Kinds lists the registered kinds in stable order.
func Kinds() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Merge combines two parent brains for crossover. Same-kind parents merge
// parameters when the kind supports it; otherwise the offspring inherits a
// clone of a.
func Merge(a, b Brain) (Brain, error) {
	if a == nil || b == nil {
		return nil, errors.New("merge requires two brains")
	}
	if a.Kind() == b.Kind() {
		if m, ok := a.(Merger); ok {
			return m.Merge(b)
		}
	}
	return a.Clone(), nil
}
