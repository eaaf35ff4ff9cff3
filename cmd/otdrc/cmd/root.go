package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	configPath string

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
)

var rootCmd = &cobra.Command{
	Use:   "otdrc",
	Short: "OpenTraceDRC - design rule checker for KiCad boards",
	Long: `OpenTraceDRC (otdrc) runs electrical and mechanical design rule
checks against KiCad PCB files (.kicad_pcb):
  - copper clearances between pads, tracks, vias, zones and text
  - net class constraint sanity against board minimums
  - drilled hole spacing, dangling copper, keepout and courtyard checks
  - custom clearance rules from a rule file

Examples:
  otdrc check board.kicad_pcb             # Run all checks
  otdrc check --rules my.rules board.kicad_pcb
  otdrc nets board.kicad_pcb              # Show connectivity per net
  otdrc rules check my.rules              # Validate a rule file`,
	Version:       "0.9.0",
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}))
		}
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default otdrc.yaml next to the board)")
}
