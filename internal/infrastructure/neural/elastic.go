package neural

import (
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"

	domainNeural "github.com/xStFtx/neuroforge/internal/domain/neural"
	"github.com/xStFtx/neuroforge/internal/shared"
)

// Mutation probabilities for an elastic bank's hill-climbing pass.
const (
	unitMutationRate   = 0.1
	weightMutationRate = 0.1
	mutationScale      = 0.1
)

// ElasticUnit is a sigmoid unit that tracks recent activations to score its
// own importance.
type ElasticUnit struct {
	weights    []float64
	history    *ring[float64]
	importance float64
}

// NewElasticUnit creates a unit with inputDim weights drawn from U(-1, 1).
func NewElasticUnit(inputDim int, rng *rand.Rand) *ElasticUnit {
	return &ElasticUnit{
		weights: uniformVector(rng, inputDim, -1, 1),
		history: newRing[float64](domainNeural.HistoryCapacity),
	}
}

// Activate returns sigmoid(w·x) and records it.
func (u *ElasticUnit) Activate(input []float64) float64 {
	a := sigmoid(floats.Dot(u.weights, input))
	u.history.push(a)
	return a
}

// Gradients returns the per-weight gradients for err at the last activation.
func (u *ElasticUnit) Gradients(err float64) ([]float64, error) {
	a, ok := u.history.last()
	if !ok {
		return nil, fmt.Errorf("%w: elastic unit", domainNeural.ErrNoActivation)
	}
	g := err * sigmoidDerivative(a)
	grads := make([]float64, len(u.weights))
	floats.AddScaled(grads, g, u.weights)
	return grads, nil
}

// UpdateWeights applies w -= learningRate·grad.
func (u *ElasticUnit) UpdateWeights(grads []float64, learningRate float64) {
	floats.AddScaled(u.weights, -learningRate, grads)
}

// UpdateImportance sets importance to mean(history)·(1 − emotionalState).
// A unit that never activated scores zero.
func (u *ElasticUnit) UpdateImportance(emotionalState float64) {
	u.importance = mean(u.history.values()) * (1 - emotionalState)
}

// Mutate perturbs each weight with probability weightMutationRate.
func (u *ElasticUnit) Mutate(rng *rand.Rand) {
	for i := range u.weights {
		if rng.Float64() < weightMutationRate {
			u.weights[i] += uniform(rng, -mutationScale, mutationScale)
		}
	}
}

// Importance returns the last computed importance score.
func (u *ElasticUnit) Importance() float64 { return u.importance }

// Weights returns a copy of the unit weights.
func (u *ElasticUnit) Weights() []float64 { return shared.CloneVector(u.weights) }

// History returns recorded activations, oldest first.
func (u *ElasticUnit) History() []float64 { return u.history.values() }

// Adaptation reports what one ElasticBank.Adapt call did.
type Adaptation struct {
	Action  domainNeural.AdaptationAction
	Size    int
	Mutated int
	// Ranking lists output positions by descending importance before resizing.
	Ranking []int
	// Remap maps each new output position to its previous position (-1 for a
	// new unit). Nil when the output layout did not change.
	Remap []int
}

// ElasticBank owns a variable number of elastic units. Units live in an arena;
// order lists the arena slots in output order.
type ElasticBank struct {
	arena     []*ElasticUnit
	free      []int
	order     []int
	inputDim  int
	minUnits  int
	maxUnits  int
	threshold float64
	rng       *rand.Rand
}

// NewElasticBank creates a bank of size units bounded by [size/2, 2·size].
func NewElasticBank(inputDim, size int, rng *rand.Rand) *ElasticBank {
	return NewElasticBankWithBounds(inputDim, size,
		size/domainNeural.ElasticShrinkDivisor,
		size*domainNeural.ElasticGrowthFactor,
		domainNeural.DefaultAdaptationThreshold, rng)
}

// NewElasticBankWithBounds creates a bank with explicit bounds and threshold.
func NewElasticBankWithBounds(inputDim, size, minUnits, maxUnits int, threshold float64, rng *rand.Rand) *ElasticBank {
	b := &ElasticBank{
		arena:     make([]*ElasticUnit, 0, maxUnits),
		order:     make([]int, 0, maxUnits),
		inputDim:  inputDim,
		minUnits:  minUnits,
		maxUnits:  maxUnits,
		threshold: threshold,
		rng:       rng,
	}
	for i := 0; i < size; i++ {
		b.grow()
	}
	return b
}

// Kind implements Stage.
func (b *ElasticBank) Kind() domainNeural.LayerKind { return domainNeural.LayerAdaptive }

// InputDim implements Stage.
func (b *ElasticBank) InputDim() int { return b.inputDim }

// OutputDim implements Stage.
func (b *ElasticBank) OutputDim() int { return len(b.order) }

// Size returns the current number of units.
func (b *ElasticBank) Size() int { return len(b.order) }

// Bounds returns the minimum and maximum unit counts.
func (b *ElasticBank) Bounds() (minUnits, maxUnits int) { return b.minUnits, b.maxUnits }

// Threshold returns the emotional-state threshold for resizing.
func (b *ElasticBank) Threshold() float64 { return b.threshold }

// Units returns the units in output order.
func (b *ElasticBank) Units() []*ElasticUnit {
	units := make([]*ElasticUnit, len(b.order))
	for i, slot := range b.order {
		units[i] = b.arena[slot]
	}
	return units
}

// Forward activates every unit on the full input.
func (b *ElasticBank) Forward(input []float64, _ StepContext) ([]float64, error) {
	if len(input) != b.inputDim {
		return nil, fmt.Errorf("%w: elastic bank expects %d inputs, got %d",
			domainNeural.ErrDimensionMismatch, b.inputDim, len(input))
	}

	out := make([]float64, len(b.order))
	for i, slot := range b.order {
		out[i] = b.arena[slot].Activate(input)
	}
	return out, nil
}

// Backward updates every unit and returns the fan-in sum of their gradients.
func (b *ElasticBank) Backward(errVec []float64, learningRate float64) ([]float64, error) {
	if len(errVec) != len(b.order) {
		return nil, fmt.Errorf("%w: elastic bank has %d units, got %d errors",
			domainNeural.ErrDimensionMismatch, len(b.order), len(errVec))
	}

	next := make([]float64, b.inputDim)
	for i, slot := range b.order {
		u := b.arena[slot]
		grads, err := u.Gradients(errVec[i])
		if err != nil {
			return nil, fmt.Errorf("unit %d: %w", i, err)
		}
		u.UpdateWeights(grads, learningRate)
		floats.Add(next, grads)
	}
	return next, nil
}

// Adapt scores and ranks the units, grows or shrinks the bank by at most one
// unit depending on emotionalState, then mutates survivors.
func (b *ElasticBank) Adapt(emotionalState float64) Adaptation {
	for _, slot := range b.order {
		b.arena[slot].UpdateImportance(emotionalState)
	}

	ranking := b.rank()
	result := Adaptation{Action: domainNeural.AdaptationNone, Ranking: shared.CloneInts(ranking)}

	n := len(b.order)
	switch {
	case emotionalState > b.threshold && n < b.maxUnits:
		b.grow()
		result.Action = domainNeural.AdaptationGrow
		result.Remap = make([]int, n+1)
		for j := 0; j < n; j++ {
			result.Remap[j] = j
		}
		result.Remap[n] = -1

	case emotionalState < b.threshold && n > b.minUnits:
		victim := ranking[n-1]
		b.removeAt(victim)
		result.Action = domainNeural.AdaptationShrink
		result.Remap = make([]int, n-1)
		for j := range result.Remap {
			result.Remap[j] = j
		}
		if victim != n-1 {
			result.Remap[victim] = n - 1
		}
	}

	for _, slot := range b.order {
		if b.rng.Float64() < unitMutationRate {
			b.arena[slot].Mutate(b.rng)
			result.Mutated++
		}
	}

	result.Size = len(b.order)
	return result
}

// rank returns output positions sorted by descending importance. Equal scores
// keep their output order.
func (b *ElasticBank) rank() []int {
	positions := make([]int, len(b.order))
	for i := range positions {
		positions[i] = i
	}
	sort.SliceStable(positions, func(i, j int) bool {
		return b.arena[b.order[positions[i]]].importance > b.arena[b.order[positions[j]]].importance
	})
	return positions
}

func (b *ElasticBank) grow() {
	u := NewElasticUnit(b.inputDim, b.rng)
	if n := len(b.free); n > 0 {
		slot := b.free[n-1]
		b.free = b.free[:n-1]
		b.arena[slot] = u
		b.order = append(b.order, slot)
		return
	}
	b.arena = append(b.arena, u)
	b.order = append(b.order, len(b.arena)-1)
}

// removeAt drops the unit at output position p by moving the last unit into p.
func (b *ElasticBank) removeAt(p int) {
	last := len(b.order) - 1
	slot := b.order[p]
	b.order[p] = b.order[last]
	b.order = b.order[:last]
	b.arena[slot] = nil
	b.free = append(b.free, slot)
}

func (b *ElasticBank) remapInputs(src []int) {
	for _, slot := range b.order {
		u := b.arena[slot]
		u.weights = remapColumns(u.weights, src, func() float64 { return uniform(b.rng, -1, 1) })
	}
	b.inputDim = len(src)
}
