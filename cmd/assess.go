package cmd

import (
	"fmt"
	"os"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/interview-proctor/internal/interview"
)

var assessCmd = &cobra.Command{
	Use:   "assess <interview.yaml>",
	Short: "Aggregate a finished interview into one overall assessment",
	Args:  cobra.ExactArgs(1),
	RunE:  runAssess,
}

func init() {
	rootCmd.AddCommand(assessCmd)

	assessCmd.Flags().BoolP("copy", "c", false, "copy the feedback paragraph to the clipboard")
}

func runAssess(cmd *cobra.Command, args []string) error {
	logger, cfg := setup()
	ctx := cmd.Context()

	record, err := readRecord(args[0])
	if err != nil {
		return err
	}

	orchestrator := buildPipeline(ctx, cfg, logger)
	result, err := orchestrator.FinalizeAssessment(ctx, record)
	if err != nil {
		return fmt.Errorf("assessment failed: %w", err)
	}

	if copyFeedback, _ := cmd.Flags().GetBool("copy"); copyFeedback {
		if err := clipboard.WriteAll(result.Feedback); err != nil {
			logger.Warn("copying feedback to clipboard", zap.Error(err))
		} else {
			logger.Info("feedback copied to clipboard")
		}
	}

	return printResult(cmd.OutOrStdout(), result)
}

func readRecord(path string) (interview.Record, error) {
	var record interview.Record
	data, err := os.ReadFile(path)
	if err != nil {
		return record, fmt.Errorf("read interview file: %w", err)
	}
	if err := yaml.Unmarshal(data, &record); err != nil {
		return record, fmt.Errorf("decode interview file: %w", err)
	}
	for i := range record.Turns {
		record.Turns[i].Question.Type = interview.ParseQuestionType(string(record.Turns[i].Question.Type))
	}
	return record, nil
}
