// Package main provides the CLI entry point for neuroforge.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xStFtx/neuroforge/cmd/neuroforge/commands"
	"github.com/xStFtx/neuroforge/pkg/neuroforge"
)

var (
	version = "0.1.0"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "neuroforge",
	Short: "Neuroforge - heterogeneous emotional networks",
	Long: `Neuroforge builds and trains networks that mix three kinds of units:

  - Stochastic units that accumulate phase and flip regime with the emotional state
  - Elastic banks that grow, shrink and mutate as prediction error changes
  - Delay units with learnable per-input delays

A symbolic overlay appends named rule outputs and explains them, and an
episodic memory keeps recent outputs tagged with the emotional state.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ============================================================================
// Explain Command
// ============================================================================

var explainInputs []string
var explainRules []string
var explainFormat string

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Run inputs through a fresh network and explain the rule outputs",
	Long: `Build the configured network, run each --input through it and print the
output together with every symbolic rule's explanation.

Rules come from the config file; --rule name=kind adds more
(kinds: sum, mean, max, min, norm, product).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := neuroforge.DefaultConfig()
		if commands.ConfigPath != "" {
			loaded, err := neuroforge.LoadConfig(commands.ConfigPath)
			if err != nil {
				return err
			}
			cfg = *loaded
		}

		for _, spec := range explainRules {
			name, kind, ok := strings.Cut(spec, "=")
			if !ok {
				name, kind = spec, spec
			}
			cfg.Network.Rules = append(cfg.Network.Rules, neuroforge.RuleSpec{Name: name, Kind: kind})
		}

		network, err := neuroforge.NewNetworkFromConfig(cfg.Network)
		if err != nil {
			return err
		}

		inputs := explainInputs
		if len(inputs) == 0 {
			inputs = []string{strings.Repeat("1,", network.InputDim()-1) + "1"}
		}

		type explanation struct {
			Input  []float64 `json:"input"`
			Output []float64 `json:"output"`
			Rules  []string  `json:"rules"`
		}
		results := make([]explanation, 0, len(inputs))
		for _, raw := range inputs {
			x, err := commands.ParseVector(raw)
			if err != nil {
				return err
			}
			out, err := network.Forward(x)
			if err != nil {
				return err
			}
			lines := make([]string, 0)
			for line := range network.Explain() {
				lines = append(lines, line)
			}
			results = append(results, explanation{Input: x, Output: out, Rules: lines})
		}

		if explainFormat == "json" {
			output, _ := json.MarshalIndent(results, "", "  ")
			fmt.Println(string(output))
			return nil
		}
		for _, r := range results {
			fmt.Printf("Input:  %v\n", r.Input)
			fmt.Printf("Output: %v\n", r.Output)
			for _, line := range r.Rules {
				fmt.Printf("  %s\n", line)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&commands.ConfigPath, "config", "c", "", "YAML config file (defaults to the XOR network)")

	explainCmd.Flags().StringArrayVarP(&explainInputs, "input", "i", nil, "Comma-separated input vector (repeatable)")
	explainCmd.Flags().StringArrayVarP(&explainRules, "rule", "r", nil, "Extra rule as name=kind (repeatable)")
	explainCmd.Flags().StringVarP(&explainFormat, "format", "f", "text", "Output format (text|json)")
	rootCmd.AddCommand(explainCmd)

	rootCmd.AddCommand(commands.TrainCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.MemoryCmd)
}
