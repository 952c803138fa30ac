package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	domainNeural "github.com/xStFtx/neuroforge/internal/domain/neural"
	"github.com/xStFtx/neuroforge/internal/infrastructure/memory"
)

var (
	memoryDB        string
	memoryLimit     int
	memoryFormat    string
	memoryIntensity float64
	memoryPolicy    string
)

// MemoryCmd is the parent command for episode archive subcommands.
var MemoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Episodic memory commands",
	Long:  `Inspect the SQLite episode archive written by "train --memory-db".`,
}

func openArchive(policy domainNeural.RecallPolicy) (*memory.SQLiteArchive, error) {
	if memoryDB == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		memoryDB = cfg.Network.Memory.SQLitePath
	}
	if memoryDB == "" {
		return nil, fmt.Errorf("no archive: set --db or memory.sqlite_path in the config")
	}
	if _, err := os.Stat(memoryDB); err != nil {
		return nil, fmt.Errorf("archive %s: %w", memoryDB, err)
	}
	return memory.NewSQLiteArchive(memoryDB, 0, policy)
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored episodes",
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, err := openArchive("")
		if err != nil {
			return err
		}
		defer archive.Close()

		episodes, err := archive.Episodes()
		if err != nil {
			return err
		}
		if memoryLimit > 0 && len(episodes) > memoryLimit {
			episodes = episodes[len(episodes)-memoryLimit:]
		}
		if len(episodes) == 0 {
			fmt.Println("No episodes stored")
			return nil
		}

		if memoryFormat == "json" {
			output, _ := json.MarshalIndent(episodes, "", "  ")
			fmt.Println(string(output))
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tINTENSITY\tSTORED\tVECTOR")
		fmt.Fprintln(w, strings.Repeat("-", 80))
		for _, e := range episodes {
			fmt.Fprintf(w, "%s\t%.4f\t%s\t%s\n",
				e.ID[:8]+"...", e.Intensity, e.StoredAt.Format("15:04:05"), formatVector(e.Vector))
		}
		w.Flush()
		return nil
	},
}

var memoryRecallCmd = &cobra.Command{
	Use:   "recall",
	Short: "Recall an episode for an emotional intensity",
	RunE: func(cmd *cobra.Command, args []string) error {
		policy := domainNeural.RecallPolicy(memoryPolicy)
		mc := domainNeural.MemoryConfig{Policy: policy}
		if err := mc.Validate(); err != nil {
			return err
		}

		archive, err := openArchive(mc.Policy)
		if err != nil {
			return err
		}
		defer archive.Close()

		vector, ok, err := archive.Recall(memoryIntensity)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("No episodes stored")
			return nil
		}
		fmt.Printf("Recalled (%s, intensity %.4f): %s\n", mc.Policy, memoryIntensity, formatVector(vector))
		return nil
	},
}

func init() {
	MemoryCmd.PersistentFlags().StringVar(&memoryDB, "db", "", "SQLite archive path")

	memoryListCmd.Flags().IntVarP(&memoryLimit, "limit", "n", 20, "Show at most N most recent episodes (0 for all)")
	memoryListCmd.Flags().StringVarP(&memoryFormat, "format", "f", "table", "Output format (table|json)")

	memoryRecallCmd.Flags().Float64VarP(&memoryIntensity, "intensity", "i", domainNeural.InitialEmotionalState, "Emotional intensity to query with")
	memoryRecallCmd.Flags().StringVarP(&memoryPolicy, "policy", "p", string(domainNeural.RecallMostDistant), "Recall policy (most-distant|nearest)")

	MemoryCmd.AddCommand(memoryListCmd)
	MemoryCmd.AddCommand(memoryRecallCmd)
}
