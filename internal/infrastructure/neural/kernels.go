package neural

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"
)

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// sigmoidDerivative takes the sigmoid output, not its input.
func sigmoidDerivative(y float64) float64 {
	return y * (1.0 - y)
}

// temporalKernel is an exponential decay centred on zero.
func temporalKernel(t float64) float64 {
	return math.Exp(-math.Abs(t))
}

// mean returns the arithmetic mean of v, or 0 for an empty vector.
func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return stat.Mean(v, nil)
}

// meanSquared returns the mean of the squared components of v, or 0 when empty.
func meanSquared(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sq := make([]float64, len(v))
	for i, x := range v {
		sq[i] = x * x
	}
	return stat.Mean(sq, nil)
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func uniformVector(rng *rand.Rand, n int, lo, hi float64) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = uniform(rng, lo, hi)
	}
	return v
}

// remapColumns rebuilds v so that out[j] = v[src[j]], drawing fresh values
// from fill for columns with src[j] < 0.
func remapColumns(v []float64, src []int, fill func() float64) []float64 {
	out := make([]float64, len(src))
	for j, s := range src {
		if s < 0 || s >= len(v) {
			out[j] = fill()
			continue
		}
		out[j] = v[s]
	}
	return out
}
