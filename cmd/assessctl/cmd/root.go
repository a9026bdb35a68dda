package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rulesPath string

var rootCmd = &cobra.Command{
	Use:   "assessctl",
	Short: "Score negotiation transcripts offline",
	Long: `assessctl runs the negotiation assessment pipeline against transcript
files without a running service. Useful for tuning rulesets and inspecting
how a conversation scores before wiring it into the event flow.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rulesPath, "rules", "", "ruleset file (defaults to the built-in ruleset)")
}
