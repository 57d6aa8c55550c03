// Command gridedit replays a YAML edit script against an in-memory workbook
// and prints the structure that results.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/vogtb/go-spreadsheet/packages/workbook"
)

var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "gridedit",
	Short:         "Apply structural edit scripts to a workbook",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var applyCmd = &cobra.Command{
	Use:   "apply [--config file] script.yaml",
	Short: "Replay an edit script and print the resulting workbook structure",
	Args:  cobra.ExactArgs(1),
	RunE:  runApply,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the gridedit version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "gridedit %s\n", version)
	},
}

func init() {
	applyCmd.Flags().StringVar(&configPath, "config", "", "workbook config file (yaml)")
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "gridedit: %v\n", err)
		os.Exit(1)
	}
}

func runApply(cmd *cobra.Command, args []string) error {
	cfg, err := workbook.LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	script, err := LoadScript(args[0])
	if err != nil {
		return err
	}

	wb, err := workbook.NewWorkbook(workbook.WithConfig(cfg), workbook.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := script.Apply(wb, logger); err != nil {
		return err
	}
	PrintStructure(cmd.OutOrStdout(), wb)
	return nil
}
