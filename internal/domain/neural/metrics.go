package neural

import "time"

// AdaptationAction is the resize decision taken by an elastic bank.
type AdaptationAction string

const (
	AdaptationNone   AdaptationAction = "none"
	AdaptationGrow   AdaptationAction = "grow"
	AdaptationShrink AdaptationAction = "shrink"
)

// AdaptationEvent records one elastic bank adaptation call.
type AdaptationEvent struct {
	Bank      int              `json:"bank"`
	Action    AdaptationAction `json:"action"`
	Size      int              `json:"size"`
	Mutated   int              `json:"mutated"`
	Emotional float64          `json:"emotionalState"`
}

// EpochMetrics summarises one training epoch.
type EpochMetrics struct {
	Epoch          int     `json:"epoch"`
	Loss           float64 `json:"loss"`
	EmotionalState float64 `json:"emotionalState"`
	Topology       []int   `json:"topology"`
}

// TrainingMetrics holds metrics from a training run.
type TrainingMetrics struct {
	RunID          string    `json:"runId"`
	Epochs         int       `json:"epochs"`
	Examples       int       `json:"examples"`
	FinalLoss      float64   `json:"finalLoss"`
	EmotionalState float64   `json:"emotionalState"`
	Adaptations    int       `json:"adaptations"`
	Topology       []int     `json:"topology"`
	TrainingTimeMs int64     `json:"trainingTimeMs"`
	LossHistory    []float64 `json:"lossHistory"`
	LearningRate   float64   `json:"learningRate"`
	StartedAt      time.Time `json:"startedAt"`
}

// Episode is one vector stored in episodic memory with its emotional intensity.
type Episode struct {
	ID        string    `json:"id"`
	Vector    []float64 `json:"vector"`
	Intensity float64   `json:"intensity"`
	StoredAt  time.Time `json:"storedAt"`
}
