package memory

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	domainNeural "github.com/xStFtx/neuroforge/internal/domain/neural"
)

// SQLiteArchive is a durable episodic memory. It keeps at most capacity
// episodes, evicting the oldest, and also records per-epoch training metrics.
type SQLiteArchive struct {
	mu       sync.Mutex
	db       *sql.DB
	path     string
	capacity int
	policy   domainNeural.RecallPolicy
	seq      int64
	closed   bool
}

// NewSQLiteArchive opens (or creates) the archive at path. ":memory:" keeps
// the archive in process.
func NewSQLiteArchive(path string, capacity int, policy domainNeural.RecallPolicy) (*SQLiteArchive, error) {
	if path == "" {
		path = ".data/neuroforge.db"
	}
	if capacity <= 0 {
		capacity = domainNeural.DefaultMemoryCapacity
	}
	if policy == "" {
		policy = domainNeural.RecallMostDistant
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writes.
	db.SetMaxOpenConns(1)

	a := &SQLiteArchive{
		db:       db,
		path:     path,
		capacity: capacity,
		policy:   policy,
	}
	if err := a.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

func (a *SQLiteArchive) initSchema() error {
	_, err := a.db.Exec(`
		CREATE TABLE IF NOT EXISTS episodes (
			id TEXT PRIMARY KEY,
			seq INTEGER NOT NULL,
			intensity REAL NOT NULL,
			vector TEXT NOT NULL,
			stored_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_episodes_seq ON episodes(seq);

		CREATE TABLE IF NOT EXISTS epochs (
			run_id TEXT NOT NULL,
			epoch INTEGER NOT NULL,
			loss REAL NOT NULL,
			emotional_state REAL NOT NULL,
			topology TEXT NOT NULL,
			recorded_at INTEGER NOT NULL,
			PRIMARY KEY (run_id, epoch)
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create archive schema: %w", err)
	}

	var maxSeq sql.NullInt64
	if err := a.db.QueryRow(`SELECT MAX(seq) FROM episodes`).Scan(&maxSeq); err != nil {
		return fmt.Errorf("failed to read archive sequence: %w", err)
	}
	a.seq = maxSeq.Int64
	return nil
}

// Path returns the database path.
func (a *SQLiteArchive) Path() string { return a.path }

// Close closes the database.
func (a *SQLiteArchive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true
	return a.db.Close()
}

// Store inserts an episode and trims the archive to capacity.
func (a *SQLiteArchive) Store(vector []float64, intensity float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return domainNeural.ErrMemoryClosed
	}

	data, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("failed to encode episode: %w", err)
	}

	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin episode insert: %w", err)
	}
	defer tx.Rollback()

	seq := a.seq + 1
	if _, err := tx.Exec(`
		INSERT INTO episodes (id, seq, intensity, vector, stored_at)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.New().String(), seq, intensity, string(data), time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to store episode: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM episodes WHERE seq <= ?`, seq-int64(a.capacity)); err != nil {
		return fmt.Errorf("failed to evict episodes: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit episode: %w", err)
	}

	a.seq = seq
	return nil
}

// Recall scans the archive and returns the vector chosen by the recall policy.
func (a *SQLiteArchive) Recall(intensity float64) ([]float64, bool, error) {
	episodes, err := a.Episodes()
	if err != nil {
		return nil, false, err
	}
	idx := SelectEpisode(episodes, intensity, a.policy)
	if idx < 0 {
		return nil, false, nil
	}
	return episodes[idx].Vector, true, nil
}

// Episodes returns all stored episodes, oldest first.
func (a *SQLiteArchive) Episodes() ([]domainNeural.Episode, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, domainNeural.ErrMemoryClosed
	}

	rows, err := a.db.Query(`SELECT id, intensity, vector, stored_at FROM episodes ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query episodes: %w", err)
	}
	defer rows.Close()

	episodes := make([]domainNeural.Episode, 0)
	for rows.Next() {
		var e domainNeural.Episode
		var vector string
		var storedAt int64
		if err := rows.Scan(&e.ID, &e.Intensity, &vector, &storedAt); err != nil {
			return nil, fmt.Errorf("failed to scan episode: %w", err)
		}
		if err := json.Unmarshal([]byte(vector), &e.Vector); err != nil {
			return nil, fmt.Errorf("failed to decode episode %s: %w", e.ID, err)
		}
		e.StoredAt = time.UnixMilli(storedAt)
		episodes = append(episodes, e)
	}
	return episodes, rows.Err()
}

// Len returns the number of stored episodes.
func (a *SQLiteArchive) Len() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return 0, domainNeural.ErrMemoryClosed
	}
	var n int
	if err := a.db.QueryRow(`SELECT COUNT(*) FROM episodes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count episodes: %w", err)
	}
	return n, nil
}

// RecordEpoch stores the metrics of one training epoch under runID.
func (a *SQLiteArchive) RecordEpoch(runID string, m domainNeural.EpochMetrics) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return domainNeural.ErrMemoryClosed
	}

	topology, err := json.Marshal(m.Topology)
	if err != nil {
		return fmt.Errorf("failed to encode topology: %w", err)
	}
	_, err = a.db.Exec(`
		INSERT OR REPLACE INTO epochs (run_id, epoch, loss, emotional_state, topology, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, runID, m.Epoch, m.Loss, m.EmotionalState, string(topology), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record epoch: %w", err)
	}
	return nil
}

// EpochHistory returns the recorded epochs of runID in epoch order.
func (a *SQLiteArchive) EpochHistory(runID string) ([]domainNeural.EpochMetrics, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, domainNeural.ErrMemoryClosed
	}

	rows, err := a.db.Query(`
		SELECT epoch, loss, emotional_state, topology FROM epochs
		WHERE run_id = ? ORDER BY epoch
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query epochs: %w", err)
	}
	defer rows.Close()

	history := make([]domainNeural.EpochMetrics, 0)
	for rows.Next() {
		var m domainNeural.EpochMetrics
		var topology string
		if err := rows.Scan(&m.Epoch, &m.Loss, &m.EmotionalState, &topology); err != nil {
			return nil, fmt.Errorf("failed to scan epoch: %w", err)
		}
		if err := json.Unmarshal([]byte(topology), &m.Topology); err != nil {
			return nil, fmt.Errorf("failed to decode topology: %w", err)
		}
		history = append(history, m)
	}
	return history, rows.Err()
}
