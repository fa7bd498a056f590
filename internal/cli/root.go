package cli

import (
	"github.com/enchung913/career-recommender/internal/config"
	"github.com/spf13/cobra"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

var (
	configPath string
	outputFmt  string
)

var rootCmd = &cobra.Command{
	Use:   "recommender",
	Short: "Recommendation engine for the career platform",
	Long: `recommender records interaction events, builds the nightly similarity
matrices and ranks resources for students and students for suppliers.

Run "recommender serve" for the long-running process with the scheduler
and the ops endpoints, or use the other commands for one-off runs.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default: $CONFIG_PATH or ./configs/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", outputTable,
		"output format (table, json)")
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.Get(), nil
}
