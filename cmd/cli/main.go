package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zfogg/circle/internal/config"
	"github.com/zfogg/circle/internal/database"
	"github.com/zfogg/circle/internal/logger"
)

var (
	output string = "text" // "text" or "json"
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "circlectl",
	Short: "Circle CLI - operate a circle backend database",
	Long: `circlectl talks to the circle database directly.
Check and repair denormalized counters, look up users and mint tokens.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if output != "text" && output != "json" {
			return fmt.Errorf("--output must be text or json, got %q", output)
		}
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		if err := logger.Initialize(cfg.Log, cfg.IsDevelopment()); err != nil {
			return err
		}
		return database.Initialize(cfg)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = database.Close()
		_ = logger.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&output, "output", output, "Output format: text or json")

	// Add command groups
	rootCmd.AddCommand(countersCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(tokenCmd)
}

// printJSON writes v indented to stdout
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
