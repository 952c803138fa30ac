package neural

import "errors"

// Domain errors for the neural pipeline.
var (
	// ErrDimensionMismatch indicates a vector whose length differs from what a
	// stage or unit expects.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrNoActivation indicates a backward pass on a unit that never activated.
	ErrNoActivation = errors.New("backward pass before any activation")

	// ErrInvalidConfig indicates an unusable network or training configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnknownLayerKind indicates a layer kind outside stochastic/adaptive/temporal.
	ErrUnknownLayerKind = errors.New("unknown layer kind")

	// ErrUnknownRule indicates a rule kind with no built-in implementation.
	ErrUnknownRule = errors.New("unknown rule kind")

	// ErrEmptyDataset indicates training was requested with no examples.
	ErrEmptyDataset = errors.New("dataset is empty")

	// ErrMemoryClosed indicates use of a closed memory archive.
	ErrMemoryClosed = errors.New("memory archive is closed")
)
