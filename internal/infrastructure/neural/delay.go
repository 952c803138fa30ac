package neural

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	domainNeural "github.com/xStFtx/neuroforge/internal/domain/neural"
	"github.com/xStFtx/neuroforge/internal/shared"
)

const maxPlasticity = 0.1

// timedActivation is one entry of a delay unit's history.
type timedActivation struct {
	Time       float64
	Activation float64
}

// DelayUnit weighs each input by a kernel centred on a learned per-input delay.
type DelayUnit struct {
	weights    []float64
	delays     []float64
	history    *ring[timedActivation]
	plasticity float64
}

// NewDelayUnit creates a unit with weights in U(-1, 1), delays in U(0, 1) and
// a plasticity in U(0, 0.1).
func NewDelayUnit(inputDim int, rng *rand.Rand) *DelayUnit {
	return &DelayUnit{
		weights:    uniformVector(rng, inputDim, -1, 1),
		delays:     uniformVector(rng, inputDim, 0, 1),
		history:    newRing[timedActivation](domainNeural.HistoryCapacity),
		plasticity: uniform(rng, 0, maxPlasticity),
	}
}

// Activate returns sigmoid(Σ xᵢ·wᵢ·kernel(t − dᵢ)) and records (t, activation).
func (u *DelayUnit) Activate(input []float64, t float64) float64 {
	var sum float64
	for i, x := range input {
		sum += x * u.weights[i] * temporalKernel(t-u.delays[i])
	}
	a := sigmoid(sum)
	u.history.push(timedActivation{Time: t, Activation: a})
	return a
}

// Gradients returns the per-input gradients for err at the last activation.
func (u *DelayUnit) Gradients(err float64) ([]float64, error) {
	last, ok := u.history.last()
	if !ok {
		return nil, fmt.Errorf("%w: delay unit", domainNeural.ErrNoActivation)
	}
	g := err * sigmoidDerivative(last.Activation)
	grads := make([]float64, len(u.weights))
	for i, w := range u.weights {
		grads[i] = g * w * temporalKernel(last.Time-u.delays[i])
	}
	return grads, nil
}

// UpdateWeights applies gradient descent to weights and, scaled by the unit's
// plasticity, to delays. Delays stay within [0, 1]; a non-finite step leaves
// the delay unchanged.
func (u *DelayUnit) UpdateWeights(grads []float64, learningRate float64) {
	for i, g := range grads {
		u.weights[i] -= learningRate * g
		d := u.delays[i] - learningRate*u.plasticity*g
		if math.IsNaN(d) {
			continue
		}
		u.delays[i] = math.Max(0, math.Min(1, d))
	}
}

// Weights returns a copy of the unit weights.
func (u *DelayUnit) Weights() []float64 { return shared.CloneVector(u.weights) }

// Delays returns a copy of the unit delays.
func (u *DelayUnit) Delays() []float64 { return shared.CloneVector(u.delays) }

// Plasticity returns the fixed delay learning coefficient.
func (u *DelayUnit) Plasticity() float64 { return u.plasticity }

// HistoryLen returns the number of recorded activations.
func (u *DelayUnit) HistoryLen() int { return u.history.len() }

// LastActivation returns the most recent (time, activation) pair.
func (u *DelayUnit) LastActivation() (t, activation float64, ok bool) {
	last, ok := u.history.last()
	return last.Time, last.Activation, ok
}

// DelayBank is a fixed-size bank of delay units.
type DelayBank struct {
	units    []*DelayUnit
	inputDim int
	rng      *rand.Rand
}

// NewDelayBank creates size delay units reading inputDim values.
func NewDelayBank(inputDim, size int, rng *rand.Rand) *DelayBank {
	b := &DelayBank{
		units:    make([]*DelayUnit, size),
		inputDim: inputDim,
		rng:      rng,
	}
	for i := range b.units {
		b.units[i] = NewDelayUnit(inputDim, rng)
	}
	return b
}

// Kind implements Stage.
func (b *DelayBank) Kind() domainNeural.LayerKind { return domainNeural.LayerTemporal }

// InputDim implements Stage.
func (b *DelayBank) InputDim() int { return b.inputDim }

// OutputDim implements Stage.
func (b *DelayBank) OutputDim() int { return len(b.units) }

// Units exposes the bank's units for inspection.
func (b *DelayBank) Units() []*DelayUnit { return b.units }

// Forward activates every unit at sc.Time.
func (b *DelayBank) Forward(input []float64, sc StepContext) ([]float64, error) {
	if len(input) != b.inputDim {
		return nil, fmt.Errorf("%w: delay bank expects %d inputs, got %d",
			domainNeural.ErrDimensionMismatch, b.inputDim, len(input))
	}

	out := make([]float64, len(b.units))
	for i, u := range b.units {
		out[i] = u.Activate(input, sc.Time)
	}
	return out, nil
}

// Backward updates every unit and returns the fan-in sum of their gradients.
func (b *DelayBank) Backward(errVec []float64, learningRate float64) ([]float64, error) {
	if len(errVec) != len(b.units) {
		return nil, fmt.Errorf("%w: delay bank has %d units, got %d errors",
			domainNeural.ErrDimensionMismatch, len(b.units), len(errVec))
	}

	next := make([]float64, b.inputDim)
	for i, u := range b.units {
		grads, err := u.Gradients(errVec[i])
		if err != nil {
			return nil, fmt.Errorf("unit %d: %w", i, err)
		}
		u.UpdateWeights(grads, learningRate)
		floats.Add(next, grads)
	}
	return next, nil
}

func (b *DelayBank) remapInputs(src []int) {
	for _, u := range b.units {
		u.weights = remapColumns(u.weights, src, func() float64 { return uniform(b.rng, -1, 1) })
		u.delays = remapColumns(u.delays, src, func() float64 { return uniform(b.rng, 0, 1) })
	}
	b.inputDim = len(src)
}
