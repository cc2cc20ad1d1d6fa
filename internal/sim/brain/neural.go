package brain

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
)

// KindNeural names the feedforward network policy.
const KindNeural = "neural"

// Network dimensions. Inputs match Observation.Vector; one output score per
// action. These are part of the exported weight format.
const (
	neuralInputs  = 9
	neuralHidden  = 16
	neuralOutputs = int(numActions)
)

// Neural is a two-layer feedforward network scoring each action; Decide
// takes the argmax. Weights evolve through Mutate and Merge, there is no
// training step.
type Neural struct {
	W1 [neuralHidden][neuralInputs]float64
	B1 [neuralHidden]float64
	W2 [neuralOutputs][neuralHidden]float64
	B2 [neuralOutputs]float64
}

// neuralParams is the exported weight form: flattened row-major layers.
// When W1 is absent the factory falls back to a random init from Seed.
type neuralParams struct {
	Seed int64     `json:"seed,omitempty"`
	W1   []float64 `json:"w1,omitempty"`
	B1   []float64 `json:"b1,omitempty"`
	W2   []float64 `json:"w2,omitempty"`
	B2   []float64 `json:"b2,omitempty"`
}

func init() {
	Register(KindNeural, func(params json.RawMessage) (Brain, error) {
		var p neuralParams
		if len(params) > 0 {
			if err := json.Unmarshal(params, &p); err != nil {
				return nil, fmt.Errorf("neural params: %w", err)
			}
		}
		if len(p.W1) == 0 {
			return NewNeural(rand.New(rand.NewSource(p.Seed))), nil
		}
		nn := &Neural{}
		if err := nn.setWeights(p); err != nil {
			return nil, err
		}
		return nn, nil
	})
}

// NewNeural returns a Xavier-initialized network drawn from rng.
func NewNeural(rng *rand.Rand) *Neural {
	nn := &Neural{}
	scale1 := math.Sqrt(2.0 / float64(neuralInputs))
	scale2 := math.Sqrt(2.0 / float64(neuralHidden))
	for i := range nn.W1 {
		for j := range nn.W1[i] {
			nn.W1[i][j] = rng.NormFloat64() * scale1
		}
	}
	for i := range nn.W2 {
		for j := range nn.W2[i] {
			nn.W2[i][j] = rng.NormFloat64() * scale2
		}
	}
	return nn
}

func (nn *Neural) Kind() string { return KindNeural }

// Decide runs the forward pass and returns the highest-scoring action.
// Ties resolve to the lowest action index.
func (nn *Neural) Decide(obs Observation) (Action, error) {
	in := obs.Vector()
	var hidden [neuralHidden]float64
	for i := 0; i < neuralHidden; i++ {
		sum := nn.B1[i]
		for j := 0; j < neuralInputs; j++ {
			sum += nn.W1[i][j] * in[j]
		}
		hidden[i] = math.Tanh(sum)
	}
	best, bestScore := 0, math.Inf(-1)
	for i := 0; i < neuralOutputs; i++ {
		sum := nn.B2[i]
		for j := 0; j < neuralHidden; j++ {
			sum += nn.W2[i][j] * hidden[j]
		}
		if sum > bestScore {
			best, bestScore = i, sum
		}
	}
	return Action(best), nil
}

// Clone copies all weights; the arrays make the struct copy deep.
func (nn *Neural) Clone() Brain {
	c := *nn
	return &c
}

// Mutate perturbs every weight and bias with Gaussian noise.
func (nn *Neural) Mutate(rng *rand.Rand, strength float64) {
	for i := range nn.W1 {
		for j := range nn.W1[i] {
			nn.W1[i][j] += rng.NormFloat64() * strength
		}
		nn.B1[i] += rng.NormFloat64() * strength
	}
	for i := range nn.W2 {
		for j := range nn.W2[i] {
			nn.W2[i][j] += rng.NormFloat64() * strength
		}
		nn.B2[i] += rng.NormFloat64() * strength
	}
}

// Merge averages weights with a same-kind partner.
func (nn *Neural) Merge(other Brain) (Brain, error) {
	on, ok := other.(*Neural)
	if !ok {
		return nil, fmt.Errorf("neural merge: partner kind %q", other.Kind())
	}
	c := &Neural{}
	for i := range nn.W1 {
		for j := range nn.W1[i] {
			c.W1[i][j] = (nn.W1[i][j] + on.W1[i][j]) / 2
		}
		c.B1[i] = (nn.B1[i] + on.B1[i]) / 2
	}
	for i := range nn.W2 {
		for j := range nn.W2[i] {
			c.W2[i][j] = (nn.W2[i][j] + on.W2[i][j]) / 2
		}
		c.B2[i] = (nn.B2[i] + on.B2[i]) / 2
	}
	return c, nil
}

func (nn *Neural) Export() (json.RawMessage, error) {
	p := neuralParams{
		W1: make([]float64, 0, neuralHidden*neuralInputs),
		B1: append([]float64(nil), nn.B1[:]...),
		W2: make([]float64, 0, neuralOutputs*neuralHidden),
		B2: append([]float64(nil), nn.B2[:]...),
	}
	for i := range nn.W1 {
		p.W1 = append(p.W1, nn.W1[i][:]...)
	}
	for i := range nn.W2 {
		p.W2 = append(p.W2, nn.W2[i][:]...)
	}
	return json.Marshal(p)
}

func (nn *Neural) setWeights(p neuralParams) error {
	if len(p.W1) != neuralHidden*neuralInputs || len(p.B1) != neuralHidden ||
		len(p.W2) != neuralOutputs*neuralHidden || len(p.B2) != neuralOutputs {
		return fmt.Errorf("neural params: weight shape %d/%d/%d/%d",
			len(p.W1), len(p.B1), len(p.W2), len(p.B2))
	}
	for i := 0; i < neuralHidden; i++ {
		copy(nn.W1[i][:], p.W1[i*neuralInputs:(i+1)*neuralInputs])
	}
	copy(nn.B1[:], p.B1)
	for i := 0; i < neuralOutputs; i++ {
		copy(nn.W2[i][:], p.W2[i*neuralHidden:(i+1)*neuralHidden])
	}
	copy(nn.B2[:], p.B2)
	return nil
}
