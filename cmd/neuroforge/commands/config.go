package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	appNeural "github.com/xStFtx/neuroforge/internal/application/neural"
	domainNeural "github.com/xStFtx/neuroforge/internal/domain/neural"
)

var (
	configInitOutput string
	configInitForce  bool
)

// ConfigCmd is the parent command for configuration subcommands.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
	Long:  `Create and inspect network configuration files.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configInitOutput); err == nil && !configInitForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", configInitOutput)
		}
		if err := appNeural.SaveConfig(configInitOutput, domainNeural.DefaultConfig()); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", configInitOutput)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "neuroforge.yaml", "Output file path")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing file")

	ConfigCmd.AddCommand(configInitCmd)
	ConfigCmd.AddCommand(configShowCmd)
}
