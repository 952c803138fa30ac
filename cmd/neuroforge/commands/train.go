package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	appNeural "github.com/xStFtx/neuroforge/internal/application/neural"
	domainNeural "github.com/xStFtx/neuroforge/internal/domain/neural"
	"github.com/xStFtx/neuroforge/internal/infrastructure/memory"
	infraNeural "github.com/xStFtx/neuroforge/internal/infrastructure/neural"
)

// Flag variables for the train command
var (
	trainEpochs       int
	trainLearningRate float64
	trainSeed         int64
	trainData         string
	trainMemoryDB     string
	trainLogEvery     int
	trainVerbose      bool
)

// TrainCmd trains a network on a dataset.
var TrainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a network",
	Long: `Train a network on a built-in dataset or a YAML/JSON dataset file.

Each example runs forward, backward, an emotional state update and topology
adaptation. Flags override the values from --config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("epochs") {
			cfg.Training.Epochs = trainEpochs
		}
		if flags.Changed("learning-rate") {
			cfg.Training.LearningRate = trainLearningRate
		}
		if flags.Changed("seed") {
			cfg.Network.Seed = trainSeed
		}
		if flags.Changed("data") {
			cfg.Training.Dataset = trainData
		}
		if flags.Changed("memory-db") {
			cfg.Network.Memory.SQLitePath = trainMemoryDB
		}
		if flags.Changed("log-every") {
			cfg.Training.LogEvery = trainLogEvery
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		data, err := appNeural.LoadDataset(cfg.Training.Dataset)
		if err != nil {
			return err
		}

		logs := newLogManager(trainVerbose)

		var netOpts []infraNeural.Option
		var engineOpts []appNeural.EngineOption
		engineOpts = append(engineOpts, appNeural.WithLogger(logs.Named("trainer")))
		if path := cfg.Network.Memory.SQLitePath; path != "" {
			archive, err := memory.NewSQLiteArchive(path, cfg.Network.Memory.Capacity, cfg.Network.Memory.Policy)
			if err != nil {
				return err
			}
			defer archive.Close()
			netOpts = append(netOpts, infraNeural.WithMemory(archive))
			engineOpts = append(engineOpts, appNeural.WithEpochRecorder(archive))
		}

		network, err := infraNeural.NewFromConfig(cfg.Network, netOpts...)
		if err != nil {
			return fmt.Errorf("failed to build network: %w", err)
		}
		engine := appNeural.NewTrainingEngine(network, cfg.Training, engineOpts...)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		epochs := cfg.Training.Epochs
		fmt.Printf("Training network %v on %q (epochs: %d, lr: %g)\n",
			network.Topology(), cfg.Training.Dataset, epochs, cfg.Training.LearningRate)
		fmt.Println(strings.Repeat("-", 60))

		progressFn := func(m domainNeural.EpochMetrics) {
			done := m.Epoch + 1
			bar := strings.Repeat("█", done*30/epochs)
			spaces := strings.Repeat("░", 30-done*30/epochs)
			fmt.Printf("\rEpoch %4d/%d [%s%s] Loss: %.4f  E: %.3f", done, epochs, bar, spaces, m.Loss, m.EmotionalState)
		}

		metrics, err := engine.Train(ctx, data, progressFn)
		fmt.Println() // New line after progress bar
		if err != nil {
			return fmt.Errorf("training failed: %w", err)
		}

		fmt.Println(strings.Repeat("-", 60))
		fmt.Println("\nTraining Complete!")
		fmt.Printf("  Run ID:          %s\n", metrics.RunID)
		fmt.Printf("  Final loss:      %.4f\n", metrics.FinalLoss)
		fmt.Printf("  Emotional state: %.4f\n", metrics.EmotionalState)
		fmt.Printf("  Adaptations:     %d\n", metrics.Adaptations)
		fmt.Printf("  Topology:        %v\n", metrics.Topology)
		fmt.Printf("  Training time:   %dms\n", metrics.TrainingTimeMs)

		fmt.Println("\nPredictions:")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "INPUT\tTARGET\tOUTPUT")
		for i, input := range data.Inputs {
			out, err := network.Forward(input)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", formatVector(input), formatVector(data.Targets[i]), formatVector(out))
		}
		w.Flush()

		printExplanation(network)
		return nil
	},
}

func printExplanation(network *infraNeural.Network) {
	header := false
	for line := range network.Explain() {
		if !header {
			fmt.Println("\nExplanation:")
			header = true
		}
		fmt.Printf("  %s\n", line)
	}
}

func init() {
	TrainCmd.Flags().IntVarP(&trainEpochs, "epochs", "e", 1000, "Training epochs")
	TrainCmd.Flags().Float64VarP(&trainLearningRate, "learning-rate", "l", 0.1, "Learning rate")
	TrainCmd.Flags().Int64Var(&trainSeed, "seed", 1, "Random seed")
	TrainCmd.Flags().StringVarP(&trainData, "data", "d", "xor", "Dataset name or YAML/JSON dataset file")
	TrainCmd.Flags().StringVar(&trainMemoryDB, "memory-db", "", "SQLite archive for episodes and epoch metrics")
	TrainCmd.Flags().IntVar(&trainLogEvery, "log-every", 100, "Log an epoch summary every N epochs")
	TrainCmd.Flags().BoolVarP(&trainVerbose, "verbose", "v", false, "Log epoch summaries and topology changes")
}
