package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/assess"
	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/rules"
)

var (
	transcriptPath string
	pretty         bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Assess a transcript file and print the performance record",
	Long: `Reads a transcript file and prints the full assessment as JSON.

The file holds an assessment request:

  {
    "negotiation_id": "...",   (optional, generated when missing)
    "user_id": "...",          (optional, defaults to "local")
    "scenario_id": "salary-negotiation",
    "transcript": [
      {"speaker": "user", "text": "That's my final offer.", "index": 0}
    ]
  }

Examples:
  assessctl score --transcript session.json
  assessctl score --transcript session.json --rules tuned.json --pretty`,
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)
	scoreCmd.Flags().StringVar(&transcriptPath, "transcript", "", "transcript file to assess (required)")
	scoreCmd.Flags().BoolVar(&pretty, "pretty", false, "indent the JSON output")
	scoreCmd.MarkFlagRequired("transcript")
}

func runScore(cmd *cobra.Command, args []string) error {
	rs, err := loadRules()
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(transcriptPath)
	if err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}

	var req assess.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("parse transcript: %w", err)
	}
	if req.NegotiationID == uuid.Nil {
		req.NegotiationID = uuid.New()
	}
	if req.UserID == "" {
		req.UserID = "local"
	}

	rec := assess.Evaluate(rs, req)

	enc := json.NewEncoder(cmd.OutOrStdout())
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(rec)
}

func loadRules() (*rules.Ruleset, error) {
	if rulesPath == "" {
		return rules.Default(), nil
	}
	rs, err := rules.LoadFile(rulesPath)
	if err != nil {
		return nil, fmt.Errorf("load ruleset: %w", err)
	}
	return rs, nil
}
