package neural

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	domainNeural "github.com/xStFtx/neuroforge/internal/domain/neural"
)

func TestRing_EvictsOldestAtCapacity(t *testing.T) {
	r := newRing[int](domainNeural.HistoryCapacity)
	for i := 0; i < 150; i++ {
		r.push(i)
	}

	if r.len() != 100 {
		t.Fatalf("expected 100 retained values, got %d", r.len())
	}
	values := r.values()
	if values[0] != 50 || values[99] != 149 {
		t.Fatalf("expected window [50, 149], got [%d, %d]", values[0], values[99])
	}
	if last, ok := r.last(); !ok || last != 149 {
		t.Fatalf("expected last 149, got %d (ok=%v)", last, ok)
	}
}

func TestStochasticUnit_OutputBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	u := NewStochasticUnit()

	inputs := []float64{0, 0.25, -3.7, 1e6, -1e-9, math.NaN(), math.Inf(1), 12.5}
	for _, emotional := range []float64{0, 0.3, 1} {
		for _, x := range inputs {
			out := u.Activate(x, emotional, rng)
			if math.IsNaN(out) || out < -1 || out > 1 {
				t.Fatalf("activate(%v, %v) = %v, want value in [-1, 1]", x, emotional, out)
			}
			if p := u.Phase(); p < 0 || p >= twoPi {
				t.Fatalf("phase %v escaped [0, 2π)", p)
			}
		}
	}
}

func TestStochasticUnit_FlipProbabilityFollowsEmotionalState(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	calm := NewStochasticUnit()
	for i := 0; i < 20; i++ {
		calm.Activate(0.1, 0, rng)
	}
	if calm.Superposed() {
		t.Fatal("unit flipped with emotional state 0")
	}

	excited := NewStochasticUnit()
	excited.Activate(0.25, 1, rng)
	if !excited.Superposed() {
		t.Fatal("unit did not flip with emotional state 1")
	}
	excited.Activate(0, 1, rng)
	if excited.Superposed() {
		t.Fatal("second flip did not toggle back")
	}
}

func TestStochasticUnit_QuarterTurn(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	u := NewStochasticUnit()

	out := u.Activate(0.25, 0, rng)
	if math.Abs(out-1) > 1e-12 {
		t.Fatalf("expected sin(π/2) = 1, got %v", out)
	}
	if g := u.Gradient(2); math.Abs(g) > 1e-12 {
		t.Fatalf("expected zero gradient at π/2, got %v", g)
	}
}

func TestStochasticBank_DimensionChecks(t *testing.T) {
	b := NewStochasticBank(3, 2, domainNeural.PropagationLegacy, rand.New(rand.NewSource(1)))

	if _, err := b.Backward([]float64{1, 1}, 0.1); !errors.Is(err, domainNeural.ErrNoActivation) {
		t.Fatalf("expected ErrNoActivation before forward, got %v", err)
	}
	if _, err := b.Forward([]float64{1, 2}, StepContext{}); !errors.Is(err, domainNeural.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch for short input, got %v", err)
	}
	if _, err := b.Forward([]float64{1, 2, 3}, StepContext{}); err != nil {
		t.Fatalf("forward failed: %v", err)
	}
	if _, err := b.Backward([]float64{1}, 0.1); !errors.Is(err, domainNeural.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch for short error, got %v", err)
	}
}

func TestStochasticBank_LegacyFirstRowSeesEmptyAccumulator(t *testing.T) {
	b := NewStochasticBank(2, 3, domainNeural.PropagationLegacy, rand.New(rand.NewSource(3)))
	before := b.Weights()

	if _, err := b.Forward([]float64{0.4, -0.2}, StepContext{}); err != nil {
		t.Fatalf("forward failed: %v", err)
	}
	next, err := b.Backward([]float64{0.5, -1, 2}, 0.5)
	if err != nil {
		t.Fatalf("backward failed: %v", err)
	}

	after := b.Weights()
	for j := range before[0] {
		if after[0][j] != before[0][j] {
			t.Fatalf("row 0 changed: %v -> %v", before[0], after[0])
		}
	}

	errVec := []float64{0.5, -1, 2}
	for j := range next {
		var want float64
		for i := range errVec {
			want += errVec[i] * before[i][j]
		}
		if math.Abs(next[j]-want) > 1e-12 {
			t.Fatalf("next[%d] = %v, want %v", j, next[j], want)
		}
	}
}

func TestStochasticBank_TransposedPropagation(t *testing.T) {
	b := NewStochasticBank(2, 3, domainNeural.PropagationTransposed, rand.New(rand.NewSource(5)))
	before := b.Weights()
	input := []float64{0.3, 0.9}
	errVec := []float64{1, -0.5, 0.25}
	const lr = 0.1

	if _, err := b.Forward(input, StepContext{}); err != nil {
		t.Fatalf("forward failed: %v", err)
	}
	g := make([]float64, len(errVec))
	for i, u := range b.Units() {
		g[i] = u.Gradient(errVec[i])
	}

	next, err := b.Backward(errVec, lr)
	if err != nil {
		t.Fatalf("backward failed: %v", err)
	}

	after := b.Weights()
	for j := range input {
		var want float64
		for i := range g {
			want += g[i] * before[i][j]
			wantW := before[i][j] - lr*g[i]*input[j]
			if math.Abs(after[i][j]-wantW) > 1e-12 {
				t.Fatalf("w[%d][%d] = %v, want %v", i, j, after[i][j], wantW)
			}
		}
		if math.Abs(next[j]-want) > 1e-12 {
			t.Fatalf("next[%d] = %v, want %v", j, next[j], want)
		}
	}
}

func TestElasticBank_SizeStaysWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	b := NewElasticBank(3, 4, rng)
	minUnits, maxUnits := b.Bounds()
	if minUnits != 2 || maxUnits != 8 {
		t.Fatalf("expected bounds [2, 8], got [%d, %d]", minUnits, maxUnits)
	}

	input := []float64{0.1, 0.5, -0.3}
	for step := 0; step < 500; step++ {
		if _, err := b.Forward(input, StepContext{}); err != nil {
			t.Fatalf("step %d: forward failed: %v", step, err)
		}
		prev := b.Size()
		a := b.Adapt(rng.Float64() * 0.3)

		if a.Size < minUnits || a.Size > maxUnits || a.Size != b.Size() {
			t.Fatalf("step %d: size %d outside [%d, %d]", step, a.Size, minUnits, maxUnits)
		}
		if a.Size-prev > 1 || prev-a.Size > 1 {
			t.Fatalf("step %d: resized by more than one unit (%d -> %d)", step, prev, a.Size)
		}
		if a.Action == domainNeural.AdaptationNone && a.Remap != nil {
			t.Fatalf("step %d: remap without resize", step)
		}
		if a.Remap != nil && len(a.Remap) != a.Size {
			t.Fatalf("step %d: remap has %d entries for %d units", step, len(a.Remap), a.Size)
		}
	}
}

func TestElasticBank_ThresholdDecidesDirection(t *testing.T) {
	tests := []struct {
		name      string
		emotional float64
		want      domainNeural.AdaptationAction
		size      int
	}{
		{name: "above threshold grows", emotional: 0.5, want: domainNeural.AdaptationGrow, size: 5},
		{name: "below threshold shrinks", emotional: 0.05, want: domainNeural.AdaptationShrink, size: 3},
		{name: "at threshold holds", emotional: domainNeural.DefaultAdaptationThreshold, want: domainNeural.AdaptationNone, size: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewElasticBank(2, 4, rand.New(rand.NewSource(2)))
			a := b.Adapt(tt.emotional)
			if a.Action != tt.want || a.Size != tt.size {
				t.Fatalf("expected %s to size %d, got %s to size %d", tt.want, tt.size, a.Action, a.Size)
			}
		})
	}
}

func TestElasticBank_ShrinkRemovesLeastImportant(t *testing.T) {
	b := NewElasticBank(1, 3, rand.New(rand.NewSource(9)))
	units := b.Units()
	units[0].weights[0] = 4
	units[1].weights[0] = -4
	units[2].weights[0] = 1

	if _, err := b.Forward([]float64{1}, StepContext{}); err != nil {
		t.Fatalf("forward failed: %v", err)
	}
	a := b.Adapt(0)
	if a.Action != domainNeural.AdaptationShrink {
		t.Fatalf("expected shrink, got %s", a.Action)
	}
	if a.Ranking[len(a.Ranking)-1] != 1 {
		t.Fatalf("expected position 1 ranked last, got ranking %v", a.Ranking)
	}

	// Position 1 is filled by the former last unit.
	want := []int{0, 2}
	for j, src := range a.Remap {
		if src != want[j] {
			t.Fatalf("remap = %v, want %v", a.Remap, want)
		}
	}
	if b.Units()[1] != units[2] {
		t.Fatal("expected the last unit to move into the vacated position")
	}
}

func TestElasticUnit_ImportanceOfFreshUnitIsZero(t *testing.T) {
	u := NewElasticUnit(2, rand.New(rand.NewSource(1)))
	u.UpdateImportance(0.2)
	if u.Importance() != 0 {
		t.Fatalf("expected zero importance without history, got %v", u.Importance())
	}
	if _, err := u.Gradients(1); !errors.Is(err, domainNeural.ErrNoActivation) {
		t.Fatalf("expected ErrNoActivation, got %v", err)
	}
}

func TestElasticUnit_HistoryCapped(t *testing.T) {
	u := NewElasticUnit(2, rand.New(rand.NewSource(1)))
	for i := 0; i < 250; i++ {
		u.Activate([]float64{float64(i), 1})
	}
	if n := len(u.History()); n != domainNeural.HistoryCapacity {
		t.Fatalf("expected history capped at %d, got %d", domainNeural.HistoryCapacity, n)
	}
}

func TestDelayUnit_DelaysStayClamped(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	u := NewDelayUnit(3, rng)
	if p := u.Plasticity(); p < 0 || p > maxPlasticity {
		t.Fatalf("plasticity %v outside [0, %v]", p, maxPlasticity)
	}

	for step := 0; step < 200; step++ {
		u.Activate([]float64{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}, rng.Float64()*10-5)
		grads := []float64{rng.NormFloat64() * 1e4, math.Inf(-1), math.NaN()}
		u.UpdateWeights(grads, rng.Float64()*100-50)

		for i, d := range u.Delays() {
			if math.IsNaN(d) || d < 0 || d > 1 {
				t.Fatalf("step %d: delay %d = %v outside [0, 1]", step, i, d)
			}
		}
	}
	if u.HistoryLen() != domainNeural.HistoryCapacity {
		t.Fatalf("expected history capped at %d, got %d", domainNeural.HistoryCapacity, u.HistoryLen())
	}
}

func TestDelayBank_ForwardUsesStepTime(t *testing.T) {
	b := NewDelayBank(2, 2, rand.New(rand.NewSource(6)))
	if _, err := b.Forward([]float64{1, 1}, StepContext{Time: 2.5}); err != nil {
		t.Fatalf("forward failed: %v", err)
	}
	for i, u := range b.Units() {
		tm, a, ok := u.LastActivation()
		if !ok || tm != 2.5 || a <= 0 || a >= 1 {
			t.Fatalf("unit %d: last activation (%v, %v, %v)", i, tm, a, ok)
		}
	}

	if _, err := b.Backward([]float64{1, 1, 1}, 0.1); !errors.Is(err, domainNeural.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestElasticBank_BackwardValues(t *testing.T) {
	b := NewElasticBank(2, 2, rand.New(rand.NewSource(1)))
	units := b.Units()
	copy(units[0].weights, []float64{0.5, -0.25})
	copy(units[1].weights, []float64{1, -0.5})

	// Both pre-activations are 0, so each unit outputs 0.5 and a(1-a) = 0.25.
	out, err := b.Forward([]float64{1, 2}, StepContext{})
	if err != nil {
		t.Fatalf("forward failed: %v", err)
	}
	if out[0] != 0.5 || out[1] != 0.5 {
		t.Fatalf("forward = %v, want [0.5 0.5]", out)
	}

	next, err := b.Backward([]float64{1, -2}, 0.1)
	if err != nil {
		t.Fatalf("backward failed: %v", err)
	}

	// g0 = 0.25, g1 = -0.5; grads are g·w, next sums them per input.
	tests := []struct {
		name string
		got  []float64
		want []float64
	}{
		{name: "propagated error", got: next, want: []float64{-0.375, 0.1875}},
		{name: "unit 0 weights", got: units[0].Weights(), want: []float64{0.4875, -0.24375}},
		{name: "unit 1 weights", got: units[1].Weights(), want: []float64{1.05, -0.525}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for j := range tt.want {
				if math.Abs(tt.got[j]-tt.want[j]) > 1e-12 {
					t.Fatalf("got %v, want %v", tt.got, tt.want)
				}
			}
		})
	}
}

func TestDelayBank_BackwardValues(t *testing.T) {
	b := NewDelayBank(2, 2, rand.New(rand.NewSource(1)))
	units := b.Units()
	copy(units[0].weights, []float64{0.8, -0.4})
	copy(units[0].delays, []float64{0.5, 0.3})
	units[0].plasticity = 0.05
	copy(units[1].weights, []float64{-0.6, 0.2})
	copy(units[1].delays, []float64{0.9, 0.1})
	units[1].plasticity = 0.02

	const (
		now = 0.5
		lr  = 0.1
	)
	input := []float64{1, 2}
	errVec := []float64{1, -0.5}

	type unitState struct{ weights, delays []float64 }
	before := make([]unitState, len(units))
	for i, u := range units {
		before[i] = unitState{weights: u.Weights(), delays: u.Delays()}
	}

	if _, err := b.Forward(input, StepContext{Time: now}); err != nil {
		t.Fatalf("forward failed: %v", err)
	}
	next, err := b.Backward(errVec, lr)
	if err != nil {
		t.Fatalf("backward failed: %v", err)
	}

	wantNext := make([]float64, len(input))
	for i, u := range units {
		w, d := before[i].weights, before[i].delays
		var z float64
		for j := range input {
			z += input[j] * w[j] * math.Exp(-math.Abs(now-d[j]))
		}
		a := 1 / (1 + math.Exp(-z))
		g := errVec[i] * a * (1 - a)

		gotW, gotD := u.Weights(), u.Delays()
		for j := range input {
			grad := g * w[j] * math.Exp(-math.Abs(now-d[j]))
			wantNext[j] += grad

			if wantW := w[j] - lr*grad; math.Abs(gotW[j]-wantW) > 1e-12 {
				t.Fatalf("unit %d: w[%d] = %v, want %v", i, j, gotW[j], wantW)
			}
			if wantD := d[j] - lr*u.Plasticity()*grad; math.Abs(gotD[j]-wantD) > 1e-12 {
				t.Fatalf("unit %d: d[%d] = %v, want %v", i, j, gotD[j], wantD)
			}
		}
	}
	for j := range wantNext {
		if math.Abs(next[j]-wantNext[j]) > 1e-12 {
			t.Fatalf("next = %v, want %v", next, wantNext)
		}
	}
}

func TestElasticUnit_MutateRate(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	u := NewElasticUnit(20000, rng)
	before := u.Weights()

	u.Mutate(rng)

	changed := 0
	for j, w := range u.Weights() {
		delta := w - before[j]
		if delta == 0 {
			continue
		}
		changed++
		if math.Abs(delta) > mutationScale+1e-12 {
			t.Fatalf("weight %d moved by %v, want at most %v", j, delta, mutationScale)
		}
	}
	if frac := float64(changed) / 20000; frac < 0.09 || frac > 0.11 {
		t.Fatalf("mutated %.4f of weights, want about %v", frac, weightMutationRate)
	}
}

func TestElasticBank_AdaptMutatesAboutOnePercentOfWeights(t *testing.T) {
	const (
		inputDim = 100
		size     = 50
		passes   = 40
	)
	rng := rand.New(rand.NewSource(8))
	b := NewElasticBankWithBounds(inputDim, size, size, size, domainNeural.DefaultAdaptationThreshold, rng)

	changed, mutatedUnits := 0, 0
	for pass := 0; pass < passes; pass++ {
		before := make([][]float64, size)
		for i, u := range b.Units() {
			before[i] = u.Weights()
		}

		a := b.Adapt(0.9)
		if a.Action != domainNeural.AdaptationNone || a.Size != size {
			t.Fatalf("pass %d: bank at its bounds resized (%s to %d)", pass, a.Action, a.Size)
		}
		mutatedUnits += a.Mutated

		for i, u := range b.Units() {
			for j, w := range u.Weights() {
				delta := w - before[i][j]
				if delta == 0 {
					continue
				}
				changed++
				if math.Abs(delta) > mutationScale+1e-12 {
					t.Fatalf("pass %d: unit %d weight %d moved by %v", pass, i, j, delta)
				}
			}
		}
	}

	total := float64(passes * size * inputDim)
	if frac := float64(changed) / total; frac < 0.006 || frac > 0.014 {
		t.Fatalf("mutated %.4f of weights, want about %v", frac, unitMutationRate*weightMutationRate)
	}
	if frac := float64(mutatedUnits) / float64(passes*size); frac < 0.06 || frac > 0.14 {
		t.Fatalf("mutated %.4f of units, want about %v", frac, unitMutationRate)
	}
}
