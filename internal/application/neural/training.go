// Package neural provides the training application service.
package neural

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	domainNeural "github.com/xStFtx/neuroforge/internal/domain/neural"
	"github.com/xStFtx/neuroforge/internal/infrastructure/logging"
	infraNeural "github.com/xStFtx/neuroforge/internal/infrastructure/neural"
)

// EpochRecorder persists per-epoch metrics of a run.
type EpochRecorder interface {
	RecordEpoch(runID string, m domainNeural.EpochMetrics) error
}

// EngineOption configures a TrainingEngine.
type EngineOption func(*TrainingEngine)

// WithLogger sets the logger for epoch summaries and topology changes.
func WithLogger(logger *logging.Logger) EngineOption {
	return func(e *TrainingEngine) {
		e.logger = logger
	}
}

// WithEpochRecorder persists every epoch's metrics.
func WithEpochRecorder(r EpochRecorder) EngineOption {
	return func(e *TrainingEngine) {
		e.recorder = r
	}
}

// TrainingEngine drives a network over a dataset for a number of epochs.
type TrainingEngine struct {
	mu       sync.RWMutex
	network  *infraNeural.Network
	config   domainNeural.TrainingConfig
	logger   *logging.Logger
	recorder EpochRecorder
}

// NewTrainingEngine creates a training engine for network.
func NewTrainingEngine(network *infraNeural.Network, config domainNeural.TrainingConfig, opts ...EngineOption) *TrainingEngine {
	e := &TrainingEngine{
		network: network,
		config:  config,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Network returns the network being trained.
func (e *TrainingEngine) Network() *infraNeural.Network { return e.network }

// SetConfig sets the training configuration.
func (e *TrainingEngine) SetConfig(config domainNeural.TrainingConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.config = config
}

// GetConfig returns the current training configuration.
func (e *TrainingEngine) GetConfig() domainNeural.TrainingConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.config
}

// Train runs the configured number of epochs over data. progressFn, if set,
// is called after every epoch. Cancelling ctx stops training between epochs
// and returns the metrics gathered so far with the context error.
func (e *TrainingEngine) Train(ctx context.Context, data domainNeural.Dataset, progressFn func(domainNeural.EpochMetrics)) (*domainNeural.TrainingMetrics, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	config := e.config
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}

	metrics := &domainNeural.TrainingMetrics{
		RunID:        uuid.New().String(),
		Examples:     len(data.Inputs),
		LearningRate: config.LearningRate,
		LossHistory:  make([]float64, 0, config.Epochs),
		StartedAt:    time.Now(),
	}
	e.logger.Info("training started", map[string]interface{}{
		"run":      metrics.RunID,
		"epochs":   config.Epochs,
		"examples": metrics.Examples,
		"topology": e.network.Topology(),
	})

	var runErr error
	for epoch := 0; epoch < config.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		loss, events, err := e.network.Epoch(data.Inputs, data.Targets, config.LearningRate)
		if err != nil {
			runErr = fmt.Errorf("epoch %d: %w", epoch, err)
			break
		}
		for _, ev := range events {
			if ev.Action == domainNeural.AdaptationNone {
				continue
			}
			metrics.Adaptations++
			e.logger.Debug("topology changed", map[string]interface{}{
				"epoch":  epoch,
				"bank":   ev.Bank,
				"action": string(ev.Action),
				"size":   ev.Size,
			})
		}

		em := domainNeural.EpochMetrics{
			Epoch:          epoch,
			Loss:           loss,
			EmotionalState: e.network.EmotionalState(),
			Topology:       e.network.Topology(),
		}
		metrics.LossHistory = append(metrics.LossHistory, loss)
		metrics.Epochs = epoch + 1

		if e.recorder != nil {
			if err := e.recorder.RecordEpoch(metrics.RunID, em); err != nil {
				runErr = fmt.Errorf("epoch %d: %w", epoch, err)
				break
			}
		}
		if (epoch+1)%config.LogEvery == 0 || epoch == config.Epochs-1 {
			e.logger.Info("epoch", map[string]interface{}{
				"epoch":          epoch,
				"loss":           loss,
				"emotionalState": em.EmotionalState,
				"topology":       em.Topology,
			})
		}

		if progressFn != nil {
			progressFn(em)
		}
	}

	if n := len(metrics.LossHistory); n > 0 {
		metrics.FinalLoss = metrics.LossHistory[n-1]
	}
	metrics.EmotionalState = e.network.EmotionalState()
	metrics.Topology = e.network.Topology()
	metrics.TrainingTimeMs = time.Since(metrics.StartedAt).Milliseconds()

	if runErr != nil {
		e.logger.Error("training stopped", map[string]interface{}{
			"run":   metrics.RunID,
			"epoch": metrics.Epochs,
			"error": runErr.Error(),
		})
		return metrics, runErr
	}

	e.logger.Info("training finished", map[string]interface{}{
		"run":         metrics.RunID,
		"finalLoss":   metrics.FinalLoss,
		"adaptations": metrics.Adaptations,
		"durationMs":  metrics.TrainingTimeMs,
	})
	return metrics, nil
}
