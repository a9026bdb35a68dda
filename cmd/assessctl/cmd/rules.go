package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect scoring rulesets",
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a ruleset file",
	Long: `Loads a ruleset file over the built-in defaults and checks its
invariants: dimension weights summing to 1.0, strictly descending rating
thresholds and non-empty indicator tables.

Example:
  assessctl rules validate --rules tuned.json`,
	RunE: runRulesValidate,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesValidateCmd)
}

func runRulesValidate(cmd *cobra.Command, args []string) error {
	rs, err := loadRules()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "ruleset %s is valid\n", rs.Version)
	return nil
}
