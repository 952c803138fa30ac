package neural

import (
	domainNeural "github.com/xStFtx/neuroforge/internal/domain/neural"
)

// StepContext carries the per-step values every stage may read during a
// forward pass. It is fixed for the duration of one pass.
type StepContext struct {
	EmotionalState float64
	Time           float64
}

// Stage is one bank in the network pipeline.
type Stage interface {
	Kind() domainNeural.LayerKind
	InputDim() int
	OutputDim() int
	Forward(input []float64, sc StepContext) ([]float64, error)
	Backward(errVec []float64, learningRate float64) ([]float64, error)
}

// inputRemapper is implemented by stages whose per-input parameters must follow
// a resize of the stage feeding them. src[j] is the old input column that becomes
// column j; a negative entry is a new column. Stochastic banks precede every
// elastic bank, so only elastic and delay banks are ever downstream of a resize.
type inputRemapper interface {
	remapInputs(src []int)
}
