// Package neural provides domain types for the heterogeneous neural pipeline.
package neural

import (
	"fmt"
	"strings"
)

// LayerKind identifies which bank variant a configured layer becomes.
type LayerKind string

const (
	// LayerStochastic is a bank of phase-accumulating stochastic units.
	LayerStochastic LayerKind = "stochastic"
	// LayerAdaptive is a variable-cardinality bank of elastic units.
	LayerAdaptive LayerKind = "adaptive"
	// LayerTemporal is a bank of delay-plastic units.
	LayerTemporal LayerKind = "temporal"
)

// PropagationMode selects how a stochastic bank diffuses error to its inputs.
type PropagationMode string

const (
	// PropagationLegacy reads the propagated-error accumulator while it is being
	// built, and diffuses the raw unit error rather than the unit gradient.
	PropagationLegacy PropagationMode = "legacy"
	// PropagationTransposed propagates Wᵀ·g from a snapshot of the weights and
	// updates the weights with outer(g, input).
	PropagationTransposed PropagationMode = "transposed"
)

// ErrorSignal selects the error vector fed into the backward pass.
type ErrorSignal string

const (
	// ErrorResidual starts backpropagation from output - target.
	ErrorResidual ErrorSignal = "residual"
	// ErrorTarget starts backpropagation from the target vector itself.
	ErrorTarget ErrorSignal = "target"
)

// RecallPolicy selects which stored episode the memory returns.
type RecallPolicy string

const (
	// RecallMostDistant returns the episode whose intensity is farthest from the
	// query. Ties resolve to the most recently stored episode.
	RecallMostDistant RecallPolicy = "most-distant"
	// RecallNearest returns the episode whose intensity is closest to the query.
	RecallNearest RecallPolicy = "nearest"
)

// Elastic bank bounds derived from the configured layer size.
const (
	ElasticGrowthFactor        = 2
	ElasticShrinkDivisor       = 2
	DefaultAdaptationThreshold = 0.1
	InitialEmotionalState      = 0.5
	HistoryCapacity            = 100
	DefaultMemoryCapacity      = 100
)

// LayerSpec describes one configured layer.
type LayerSpec struct {
	Size int       `json:"size" yaml:"size"`
	Kind LayerKind `json:"kind" yaml:"kind"`
}

// RuleSpec names a built-in symbolic rule to register on the overlay.
type RuleSpec struct {
	Name string `json:"name" yaml:"name"`
	Kind string `json:"kind" yaml:"kind"`
}

// MemoryConfig configures the episodic memory collaborator.
type MemoryConfig struct {
	Capacity   int          `json:"capacity" yaml:"capacity"`
	Policy     RecallPolicy `json:"policy" yaml:"policy"`
	SQLitePath string       `json:"sqlitePath,omitempty" yaml:"sqlite_path,omitempty"`
}

// DefaultMemoryConfig returns the in-memory ring buffer configuration.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		Capacity: DefaultMemoryCapacity,
		Policy:   RecallMostDistant,
	}
}

// NetworkConfig holds the topology and numeric modes of a network.
type NetworkConfig struct {
	// InputDim overrides the input width of the first stage. Zero means the
	// first stage's own size.
	InputDim    int             `json:"inputDim,omitempty" yaml:"input_dim,omitempty"`
	Layers      []LayerSpec     `json:"layers" yaml:"layers"`
	Rules       []RuleSpec      `json:"rules,omitempty" yaml:"rules,omitempty"`
	Propagation PropagationMode `json:"propagation" yaml:"propagation"`
	ErrorSignal ErrorSignal     `json:"errorSignal" yaml:"error_signal"`
	Seed        int64           `json:"seed" yaml:"seed"`
	Memory      MemoryConfig    `json:"memory" yaml:"memory"`
}

// DefaultNetworkConfig returns the three-layer all-stochastic XOR network.
func DefaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		Layers: []LayerSpec{
			{Size: 2, Kind: LayerStochastic},
			{Size: 3, Kind: LayerStochastic},
			{Size: 1, Kind: LayerStochastic},
		},
		Propagation: PropagationLegacy,
		ErrorSignal: ErrorTarget,
		Seed:        1,
		Memory:      DefaultMemoryConfig(),
	}
}

// NetworkConfigFromFlags builds a config from the parallel size/flag arrays.
// A layer flagged adaptive is adaptive even when also flagged temporal.
func NetworkConfigFromFlags(sizes []int, adaptive, temporal []bool) (NetworkConfig, error) {
	if len(sizes) != len(adaptive) || len(sizes) != len(temporal) {
		return NetworkConfig{}, fmt.Errorf("%w: %d sizes, %d adaptive flags, %d temporal flags",
			ErrInvalidConfig, len(sizes), len(adaptive), len(temporal))
	}

	cfg := DefaultNetworkConfig()
	cfg.Layers = make([]LayerSpec, len(sizes))
	for i, size := range sizes {
		kind := LayerStochastic
		switch {
		case adaptive[i]:
			kind = LayerAdaptive
		case temporal[i]:
			kind = LayerTemporal
		}
		cfg.Layers[i] = LayerSpec{Size: size, Kind: kind}
	}
	if err := cfg.Validate(); err != nil {
		return NetworkConfig{}, err
	}
	return cfg, nil
}

// Flags returns the parallel size/adaptive/temporal arrays for the layers.
func (c NetworkConfig) Flags() (sizes []int, adaptive, temporal []bool) {
	sizes = make([]int, len(c.Layers))
	adaptive = make([]bool, len(c.Layers))
	temporal = make([]bool, len(c.Layers))
	for i, l := range c.Layers {
		sizes[i] = l.Size
		adaptive[i] = l.Kind == LayerAdaptive
		temporal[i] = l.Kind == LayerTemporal
	}
	return sizes, adaptive, temporal
}

// Validate checks the config and fills empty modes with defaults.
func (c *NetworkConfig) Validate() error {
	if len(c.Layers) == 0 {
		return fmt.Errorf("%w: at least one layer is required", ErrInvalidConfig)
	}
	for i := range c.Layers {
		l := &c.Layers[i]
		if l.Size <= 0 {
			return fmt.Errorf("%w: layer %d has size %d", ErrInvalidConfig, i, l.Size)
		}
		if l.Kind == "" {
			l.Kind = LayerStochastic
		}
		l.Kind = LayerKind(strings.ToLower(string(l.Kind)))
		switch l.Kind {
		case LayerStochastic, LayerAdaptive, LayerTemporal:
		default:
			return fmt.Errorf("%w: layer %d: %q", ErrUnknownLayerKind, i, l.Kind)
		}
	}
	if c.InputDim < 0 {
		return fmt.Errorf("%w: negative input dimension %d", ErrInvalidConfig, c.InputDim)
	}

	switch c.Propagation {
	case "":
		c.Propagation = PropagationLegacy
	case PropagationLegacy, PropagationTransposed:
	default:
		return fmt.Errorf("%w: unknown propagation mode %q", ErrInvalidConfig, c.Propagation)
	}

	switch c.ErrorSignal {
	case "":
		c.ErrorSignal = ErrorTarget
	case ErrorResidual, ErrorTarget:
	default:
		return fmt.Errorf("%w: unknown error signal %q", ErrInvalidConfig, c.ErrorSignal)
	}

	seen := make(map[string]bool, len(c.Rules))
	for _, r := range c.Rules {
		if r.Name == "" {
			return fmt.Errorf("%w: rule without a name", ErrInvalidConfig)
		}
		if seen[r.Name] {
			return fmt.Errorf("%w: duplicate rule %q", ErrInvalidConfig, r.Name)
		}
		seen[r.Name] = true
	}

	return c.Memory.Validate()
}

// Validate checks the memory config and fills defaults.
func (m *MemoryConfig) Validate() error {
	if m.Capacity == 0 {
		m.Capacity = DefaultMemoryCapacity
	}
	if m.Capacity < 0 {
		return fmt.Errorf("%w: memory capacity %d", ErrInvalidConfig, m.Capacity)
	}
	switch m.Policy {
	case "":
		m.Policy = RecallMostDistant
	case RecallMostDistant, RecallNearest:
	default:
		return fmt.Errorf("%w: unknown recall policy %q", ErrInvalidConfig, m.Policy)
	}
	return nil
}

// TrainingConfig holds training hyperparameters.
type TrainingConfig struct {
	Epochs       int     `json:"epochs" yaml:"epochs"`
	LearningRate float64 `json:"learningRate" yaml:"learning_rate"`
	// LogEvery controls how often epoch summaries are logged at info level.
	LogEvery int `json:"logEvery" yaml:"log_every"`
	// Dataset is a built-in dataset name or a path to a YAML/JSON dataset file.
	Dataset string `json:"dataset" yaml:"dataset"`
}

// DefaultTrainingConfig returns sensible defaults for training.
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		Epochs:       1000,
		LearningRate: 0.1,
		LogEvery:     100,
		Dataset:      "xor",
	}
}

// Validate checks the training config.
func (t *TrainingConfig) Validate() error {
	if t.Epochs <= 0 {
		return fmt.Errorf("%w: epochs must be positive, got %d", ErrInvalidConfig, t.Epochs)
	}
	if t.LearningRate < 0 {
		return fmt.Errorf("%w: negative learning rate %v", ErrInvalidConfig, t.LearningRate)
	}
	if t.LogEvery <= 0 {
		t.LogEvery = 1
	}
	return nil
}

// Config is the top-level configuration file layout.
type Config struct {
	Network  NetworkConfig  `json:"network" yaml:"network"`
	Training TrainingConfig `json:"training" yaml:"training"`
}

// DefaultConfig returns the XOR demonstration configuration.
func DefaultConfig() Config {
	return Config{
		Network:  DefaultNetworkConfig(),
		Training: DefaultTrainingConfig(),
	}
}

// Validate validates both sections.
func (c *Config) Validate() error {
	if err := c.Network.Validate(); err != nil {
		return err
	}
	return c.Training.Validate()
}

// Dataset is a set of paired input/target vectors.
type Dataset struct {
	Inputs  [][]float64 `json:"inputs" yaml:"inputs"`
	Targets [][]float64 `json:"targets" yaml:"targets"`
}

// Validate checks that inputs and targets pair up.
func (d Dataset) Validate() error {
	if len(d.Inputs) == 0 {
		return ErrEmptyDataset
	}
	if len(d.Inputs) != len(d.Targets) {
		return fmt.Errorf("%w: %d inputs, %d targets", ErrInvalidConfig, len(d.Inputs), len(d.Targets))
	}
	return nil
}

// XORDataset returns the four-example XOR truth table.
func XORDataset() Dataset {
	return Dataset{
		Inputs:  [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}},
		Targets: [][]float64{{0}, {1}, {1}, {0}},
	}
}
