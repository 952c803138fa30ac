// Package commands provides CLI command implementations.
package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	appNeural "github.com/xStFtx/neuroforge/internal/application/neural"
	domainNeural "github.com/xStFtx/neuroforge/internal/domain/neural"
	"github.com/xStFtx/neuroforge/internal/infrastructure/logging"
)

// ConfigPath is the --config flag shared by every command.
var ConfigPath string

// loadConfig returns the config at ConfigPath, or the defaults when unset.
func loadConfig() (*domainNeural.Config, error) {
	if ConfigPath == "" {
		cfg := domainNeural.DefaultConfig()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	return appNeural.LoadConfig(ConfigPath)
}

// newLogManager creates a log manager that prints to stderr.
func newLogManager(verbose bool) *logging.LogManager {
	level := logging.LevelWarning
	if verbose {
		level = logging.LevelDebug
	}
	lm := logging.NewLogManager(level, 1000)
	lm.AddHandler(func(entry logging.LogEntry) {
		fmt.Fprintln(os.Stderr, entry.String())
	})
	return lm
}

// ParseVector parses a comma-separated list of numbers.
func ParseVector(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []float64{}, nil
	}
	parts := strings.Split(s, ",")
	v := make([]float64, len(parts))
	for i, p := range parts {
		x, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", p, err)
		}
		v[i] = x
	}
	return v, nil
}

// formatVector renders v with fixed precision.
func formatVector(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatFloat(x, 'f', 4, 64)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
