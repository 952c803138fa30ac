// Package memory provides the episodic memory collaborators of a network.
package memory

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	domainNeural "github.com/xStFtx/neuroforge/internal/domain/neural"
	"github.com/xStFtx/neuroforge/internal/shared"
)

// EpisodicMemory is a bounded in-memory buffer of output vectors tagged with
// the emotional state they were produced under.
type EpisodicMemory struct {
	mu       sync.RWMutex
	episodes []domainNeural.Episode
	capacity int
	policy   domainNeural.RecallPolicy
}

// NewEpisodicMemory creates a buffer holding at most capacity episodes.
// A non-positive capacity uses the default of 100.
func NewEpisodicMemory(capacity int, policy domainNeural.RecallPolicy) *EpisodicMemory {
	if capacity <= 0 {
		capacity = domainNeural.DefaultMemoryCapacity
	}
	if policy == "" {
		policy = domainNeural.RecallMostDistant
	}
	return &EpisodicMemory{
		episodes: make([]domainNeural.Episode, 0, capacity),
		capacity: capacity,
		policy:   policy,
	}
}

// Store appends an episode, evicting the oldest when full.
func (m *EpisodicMemory) Store(vector []float64, intensity float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.episodes) >= m.capacity {
		m.episodes = append(m.episodes[:0], m.episodes[1:]...)
	}
	m.episodes = append(m.episodes, domainNeural.Episode{
		ID:        uuid.New().String(),
		Vector:    shared.CloneVector(vector),
		Intensity: intensity,
		StoredAt:  time.Now(),
	})
	return nil
}

// Recall returns the vector selected by the recall policy for intensity.
func (m *EpisodicMemory) Recall(intensity float64) ([]float64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx := SelectEpisode(m.episodes, intensity, m.policy)
	if idx < 0 {
		return nil, false, nil
	}
	return shared.CloneVector(m.episodes[idx].Vector), true, nil
}

// Len returns the number of stored episodes.
func (m *EpisodicMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.episodes)
}

// Capacity returns the maximum number of episodes kept.
func (m *EpisodicMemory) Capacity() int { return m.capacity }

// Policy returns the recall policy.
func (m *EpisodicMemory) Policy() domainNeural.RecallPolicy { return m.policy }

// Episodes returns a copy of the stored episodes, oldest first.
func (m *EpisodicMemory) Episodes() []domainNeural.Episode {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domainNeural.Episode, len(m.episodes))
	for i, e := range m.episodes {
		e.Vector = shared.CloneVector(e.Vector)
		out[i] = e
	}
	return out
}

// SelectEpisode scans episodes (oldest first) and returns the index chosen by
// policy for the query intensity, or -1 when there are none.
//
// RecallMostDistant picks the largest |query − intensity|; on ties the later
// episode wins. RecallNearest picks the smallest; on ties the earlier wins.
func SelectEpisode(episodes []domainNeural.Episode, query float64, policy domainNeural.RecallPolicy) int {
	best := -1
	var bestDist float64
	for i, e := range episodes {
		d := math.Abs(query - e.Intensity)
		switch {
		case best < 0:
			best, bestDist = i, d
		case policy == domainNeural.RecallNearest && d < bestDist:
			best, bestDist = i, d
		case policy != domainNeural.RecallNearest && d >= bestDist:
			best, bestDist = i, d
		}
	}
	return best
}
