package neural

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	domainNeural "github.com/xStFtx/neuroforge/internal/domain/neural"
	"github.com/xStFtx/neuroforge/internal/shared"
)

const twoPi = 2 * math.Pi

// StochasticUnit accumulates phase and flips between two activation regimes
// with a probability equal to the emotional state.
type StochasticUnit struct {
	phase      float64
	superposed bool
}

// NewStochasticUnit creates a unit at phase zero, not superposed.
func NewStochasticUnit() *StochasticUnit {
	return &StochasticUnit{}
}

// Activate advances the phase by x·2π and returns the unit output in [-1, 1].
func (u *StochasticUnit) Activate(x, emotionalState float64, rng *rand.Rand) float64 {
	u.phase = math.Mod(u.phase+x*twoPi, twoPi)
	if u.phase < 0 {
		u.phase += twoPi
	}
	if math.IsNaN(u.phase) || u.phase >= twoPi {
		u.phase = 0
	}

	if rng.Float64() < emotionalState {
		u.superposed = !u.superposed
	}

	return u.output()
}

func (u *StochasticUnit) output() float64 {
	sin, cos := math.Sincos(u.phase)
	if u.superposed {
		return (sin + cos) / 2
	}
	return sin
}

// Gradient returns the local gradient of the unit output scaled by err.
func (u *StochasticUnit) Gradient(err float64) float64 {
	sin, cos := math.Sincos(u.phase)
	if u.superposed {
		return err * (cos - sin) / 2
	}
	return err * cos
}

// Phase returns the accumulated phase in [0, 2π).
func (u *StochasticUnit) Phase() float64 { return u.phase }

// Superposed reports the current activation regime.
func (u *StochasticUnit) Superposed() bool { return u.superposed }

// StochasticBank projects its input through a dense matrix before handing one
// projected value to each of its units.
type StochasticBank struct {
	units     []*StochasticUnit
	weights   [][]float64 // len(units) rows × inputDim columns
	inputDim  int
	mode      domainNeural.PropagationMode
	rng       *rand.Rand
	lastInput []float64
}

// NewStochasticBank creates a bank of size units reading inputDim values.
func NewStochasticBank(inputDim, size int, mode domainNeural.PropagationMode, rng *rand.Rand) *StochasticBank {
	if mode == "" {
		mode = domainNeural.PropagationLegacy
	}
	b := &StochasticBank{
		units:    make([]*StochasticUnit, size),
		weights:  make([][]float64, size),
		inputDim: inputDim,
		mode:     mode,
		rng:      rng,
	}
	for i := range b.units {
		b.units[i] = NewStochasticUnit()
		b.weights[i] = uniformVector(rng, inputDim, -1, 1)
	}
	return b
}

// Kind implements Stage.
func (b *StochasticBank) Kind() domainNeural.LayerKind { return domainNeural.LayerStochastic }

// InputDim implements Stage.
func (b *StochasticBank) InputDim() int { return b.inputDim }

// OutputDim implements Stage.
func (b *StochasticBank) OutputDim() int { return len(b.units) }

// Units exposes the bank's units for inspection.
func (b *StochasticBank) Units() []*StochasticUnit { return b.units }

// Weights returns a copy of the projection matrix.
func (b *StochasticBank) Weights() [][]float64 { return shared.CloneMatrix(b.weights) }

// Forward computes W·x and activates each unit on its projected value.
func (b *StochasticBank) Forward(input []float64, sc StepContext) ([]float64, error) {
	if len(input) != b.inputDim {
		return nil, fmt.Errorf("%w: stochastic bank expects %d inputs, got %d",
			domainNeural.ErrDimensionMismatch, b.inputDim, len(input))
	}

	out := make([]float64, len(b.units))
	for i, u := range b.units {
		out[i] = u.Activate(floats.Dot(b.weights[i], input), sc.EmotionalState, b.rng)
	}
	b.lastInput = shared.CloneVector(input)
	return out, nil
}

// Backward propagates errVec to the bank's inputs and updates the projection.
// The propagated error is always derived from the weights as they were before
// this call's update.
func (b *StochasticBank) Backward(errVec []float64, learningRate float64) ([]float64, error) {
	if len(errVec) != len(b.units) {
		return nil, fmt.Errorf("%w: stochastic bank has %d units, got %d errors",
			domainNeural.ErrDimensionMismatch, len(b.units), len(errVec))
	}
	if b.lastInput == nil {
		return nil, fmt.Errorf("%w: stochastic bank", domainNeural.ErrNoActivation)
	}

	var next []float64
	var grads [][]float64
	switch b.mode {
	case domainNeural.PropagationTransposed:
		next, grads = b.backwardTransposed(errVec)
	default:
		next, grads = b.backwardLegacy(errVec)
	}

	for i := range b.weights {
		floats.AddScaled(b.weights[i], -learningRate, grads[i])
	}
	return next, nil
}

// backwardLegacy diffuses each unit's raw error through its weight row while
// the weight gradient for that row reads the accumulator built so far.
func (b *StochasticBank) backwardLegacy(errVec []float64) ([]float64, [][]float64) {
	next := make([]float64, b.inputDim)
	grads := make([][]float64, len(b.units))
	for i, u := range b.units {
		g := u.Gradient(errVec[i])
		row := make([]float64, b.inputDim)
		for j := range row {
			row[j] = g * next[j]
			next[j] += errVec[i] * b.weights[i][j]
		}
		grads[i] = row
	}
	return next, grads
}

// backwardTransposed propagates Wᵀ·g and uses outer(g, x) as the weight gradient.
func (b *StochasticBank) backwardTransposed(errVec []float64) ([]float64, [][]float64) {
	next := make([]float64, b.inputDim)
	grads := make([][]float64, len(b.units))
	for i, u := range b.units {
		g := u.Gradient(errVec[i])
		floats.AddScaled(next, g, b.weights[i])
		row := make([]float64, b.inputDim)
		floats.AddScaled(row, g, b.lastInput)
		grads[i] = row
	}
	return next, grads
}
