// Package neuroforge provides the public API for building and training
// heterogeneous emotional networks.
//
// Example:
//
//	network, err := neuroforge.NewNetwork(
//	    []int{2, 3, 1},
//	    []bool{false, true, false},
//	    []bool{false, false, true},
//	    neuroforge.WithSeed(7),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	network.AddRule("total", neuroforge.RuleFunc(floats.Sum))
//
//	xor := neuroforge.XORDataset()
//	losses, err := network.Train(xor.Inputs, xor.Targets, 1000, 0.1)
package neuroforge

import (
	appNeural "github.com/xStFtx/neuroforge/internal/application/neural"
	domainNeural "github.com/xStFtx/neuroforge/internal/domain/neural"
	"github.com/xStFtx/neuroforge/internal/infrastructure/logging"
	"github.com/xStFtx/neuroforge/internal/infrastructure/memory"
	infraNeural "github.com/xStFtx/neuroforge/internal/infrastructure/neural"
)

// Re-export types for public API
type (
	// Network types
	Network      = infraNeural.Network
	Option       = infraNeural.Option
	StepResult   = infraNeural.StepResult
	EpisodeStore = infraNeural.EpisodeStore
	Rule         = infraNeural.Rule
	RuleFunc     = infraNeural.RuleFunc

	// Configuration types
	Config          = domainNeural.Config
	NetworkConfig   = domainNeural.NetworkConfig
	TrainingConfig  = domainNeural.TrainingConfig
	MemoryConfig    = domainNeural.MemoryConfig
	LayerSpec       = domainNeural.LayerSpec
	LayerKind       = domainNeural.LayerKind
	RuleSpec        = domainNeural.RuleSpec
	PropagationMode = domainNeural.PropagationMode
	ErrorSignal     = domainNeural.ErrorSignal
	RecallPolicy    = domainNeural.RecallPolicy
	Dataset         = domainNeural.Dataset

	// Metrics types
	AdaptationEvent = domainNeural.AdaptationEvent
	EpochMetrics    = domainNeural.EpochMetrics
	TrainingMetrics = domainNeural.TrainingMetrics
	Episode         = domainNeural.Episode

	// Service types
	TrainingEngine = appNeural.TrainingEngine
	EngineOption   = appNeural.EngineOption
	EpisodicMemory = memory.EpisodicMemory
	SQLiteArchive  = memory.SQLiteArchive
	LogManager     = logging.LogManager
	Logger         = logging.Logger
)

// Re-export constants
const (
	LayerStochastic = domainNeural.LayerStochastic
	LayerAdaptive   = domainNeural.LayerAdaptive
	LayerTemporal   = domainNeural.LayerTemporal

	PropagationLegacy     = domainNeural.PropagationLegacy
	PropagationTransposed = domainNeural.PropagationTransposed

	ErrorResidual = domainNeural.ErrorResidual
	ErrorTarget   = domainNeural.ErrorTarget

	RecallMostDistant = domainNeural.RecallMostDistant
	RecallNearest     = domainNeural.RecallNearest
)

// Re-export errors
var (
	ErrDimensionMismatch = domainNeural.ErrDimensionMismatch
	ErrNoActivation      = domainNeural.ErrNoActivation
	ErrInvalidConfig     = domainNeural.ErrInvalidConfig
	ErrUnknownLayerKind  = domainNeural.ErrUnknownLayerKind
	ErrUnknownRule       = domainNeural.ErrUnknownRule
	ErrEmptyDataset      = domainNeural.ErrEmptyDataset
	ErrMemoryClosed      = domainNeural.ErrMemoryClosed
)

// Re-export network options
var (
	WithRand   = infraNeural.WithRand
	WithSeed   = infraNeural.WithSeed
	WithMemory = infraNeural.WithMemory
	WithRule   = infraNeural.WithRule

	WithLogger        = appNeural.WithLogger
	WithEpochRecorder = appNeural.WithEpochRecorder
)

// ============================================================================
// Network
// ============================================================================

// NewNetwork builds a network from parallel layer-size and kind-flag arrays.
func NewNetwork(layerSizes []int, adaptive, temporal []bool, opts ...Option) (*Network, error) {
	return infraNeural.New(layerSizes, adaptive, temporal, opts...)
}

// NewNetworkFromConfig builds a network from a configuration.
func NewNetworkFromConfig(cfg NetworkConfig, opts ...Option) (*Network, error) {
	return infraNeural.NewFromConfig(cfg, opts...)
}

// BuiltinRule returns a built-in rule by kind (sum, mean, max, min, norm, product).
func BuiltinRule(kind string) (Rule, error) {
	return infraNeural.BuiltinRule(kind)
}

// ============================================================================
// Configuration
// ============================================================================

// DefaultConfig returns the XOR demonstration configuration.
func DefaultConfig() Config {
	return domainNeural.DefaultConfig()
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (*Config, error) {
	return appNeural.LoadConfig(path)
}

// SaveConfig writes a config as YAML.
func SaveConfig(path string, cfg Config) error {
	return appNeural.SaveConfig(path, cfg)
}

// LoadDataset resolves a built-in dataset name or a YAML/JSON dataset file.
func LoadDataset(name string) (Dataset, error) {
	return appNeural.LoadDataset(name)
}

// XORDataset returns the XOR truth table.
func XORDataset() Dataset {
	return domainNeural.XORDataset()
}

// ============================================================================
// Training and memory
// ============================================================================

// NewTrainingEngine creates a training engine for network.
func NewTrainingEngine(network *Network, cfg TrainingConfig, opts ...EngineOption) *TrainingEngine {
	return appNeural.NewTrainingEngine(network, cfg, opts...)
}

// NewEpisodicMemory creates a bounded in-memory episode buffer.
func NewEpisodicMemory(capacity int, policy RecallPolicy) *EpisodicMemory {
	return memory.NewEpisodicMemory(capacity, policy)
}

// NewSQLiteArchive opens a durable episode archive.
func NewSQLiteArchive(path string, capacity int, policy RecallPolicy) (*SQLiteArchive, error) {
	return memory.NewSQLiteArchive(path, capacity, policy)
}

// NewLogManager creates a log manager at level ("debug", "info", "warning" or "error").
func NewLogManager(level string) (*LogManager, error) {
	lm := logging.NewLogManagerWithDefaults()
	if err := lm.SetLevel(level); err != nil {
		return nil, err
	}
	return lm, nil
}
