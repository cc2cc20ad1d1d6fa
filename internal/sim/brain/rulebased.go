package brain

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
)

// KindRuleBased names the hard-coded seek-and-wander policy.
const KindRuleBased = "rule_based"

const (
	defaultLowEnergy = 10.0
	// Offsets smaller than this are treated as "already there".
	seekDeadzone = 0.1
)

// RuleBased moves toward the nearest sensed resource, conserves when energy
// is low, and otherwise wanders on the ground plane.
type RuleBased struct {
	LowEnergy float64
	Seed      int64

	rng *rand.Rand
}

type ruleBasedParams struct {
	LowEnergy *float64 `json:"low_energy,omitempty"`
	Seed      int64    `json:"seed"`
}

func init() {
	Register(KindRuleBased, func(params json.RawMessage) (Brain, error) {
		var p ruleBasedParams
		if len(params) > 0 {
			if err := json.Unmarshal(params, &p); err != nil {
				return nil, fmt.Errorf("rule_based params: %w", err)
			}
		}
		b := NewRuleBased(p.Seed)
		if p.LowEnergy != nil {
			b.LowEnergy = *p.LowEnergy
		}
		return b, nil
	})
}

// NewRuleBased returns the policy with its wander stream seeded from seed.
func NewRuleBased(seed int64) *RuleBased {
	return &RuleBased{
		LowEnergy: defaultLowEnergy,
		Seed:      seed,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

func (b *RuleBased) Kind() string { return KindRuleBased }

// Decide heads for the nearest resource along the axis with the largest
// offset (x beats z beats y on ties), stays put when energy is low, and
// otherwise picks a random ground move.
func (b *RuleBased) Decide(obs Observation) (Action, error) {
	if res := obs.NearestResource; res != nil {
		adx, ady, adz := math.Abs(res.DX), math.Abs(res.DY), math.Abs(res.DZ)
		if adx > seekDeadzone || adz > seekDeadzone || ady > seekDeadzone {
			switch {
			case adx >= ady && adx >= adz:
				if res.DX > 0 {
					return MoveXPos, nil
				}
				return MoveXNeg, nil
			case adz >= adx && adz >= ady:
				if res.DZ > 0 {
					return MoveZPos, nil
				}
				return MoveZNeg, nil
			default:
				if res.DY > 0 {
					return MoveYPos, nil
				}
				return MoveYNeg, nil
			}
		}
	}
	if obs.Energy < b.LowEnergy {
		return Stay, nil
	}
	// Wander on the ground plane only; vertical drift wastes energy.
	return Action(b.rng.Intn(5)), nil
}

// Clone restarts the wander stream from the configured seed.
func (b *RuleBased) Clone() Brain {
	c := NewRuleBased(b.Seed)
	c.LowEnergy = b.LowEnergy
	return c
}

func (b *RuleBased) Export() (json.RawMessage, error) {
	return json.Marshal(ruleBasedParams{LowEnergy: &b.LowEnergy, Seed: b.Seed})
}
