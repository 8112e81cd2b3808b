package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/interview-proctor/internal/interview"
	"github.com/spigell/interview-proctor/internal/media"
	"github.com/spigell/interview-proctor/internal/pipeline"
)

var turnCmd = &cobra.Command{
	Use:   "turn",
	Short: "Process one answer: transcribe, proctor, score and generate follow-ups",
	RunE:  runTurn,
}

func init() {
	rootCmd.AddCommand(turnCmd)

	turnCmd.Flags().StringP("audio", "a", "", "audio file with the spoken answer (required)")
	turnCmd.Flags().StringP("snapshot", "s", "", "optional webcam snapshot taken during the answer")
	turnCmd.Flags().StringP("question", "q", "", "the question that was answered (required)")
	turnCmd.Flags().StringP("type", "t", string(interview.Behavioral), "question type: behavioral or technical")
	turnCmd.Flags().String("interview", "", "interview id (generated when empty)")

	_ = turnCmd.MarkFlagRequired("audio")
	_ = turnCmd.MarkFlagRequired("question")
}

func runTurn(cmd *cobra.Command, _ []string) error {
	logger, cfg := setup()
	ctx := cmd.Context()

	audioPath, _ := cmd.Flags().GetString("audio")
	snapshotPath, _ := cmd.Flags().GetString("snapshot")
	questionText, _ := cmd.Flags().GetString("question")
	questionType, _ := cmd.Flags().GetString("type")
	interviewID, _ := cmd.Flags().GetString("interview")

	// Files named on the command line belong to the user and are never deleted.
	clip, err := media.OpenAudioClip(audioPath, false)
	if err != nil {
		return err
	}
	turn := pipeline.Turn{
		InterviewID: interviewID,
		Question:    interview.Question{Text: questionText, Type: interview.ParseQuestionType(questionType)},
		Audio:       clip,
	}
	if snapshotPath != "" {
		if turn.Snapshot, err = media.OpenSnapshot(snapshotPath, false); err != nil {
			return err
		}
	}

	orchestrator := buildPipeline(ctx, cfg, logger)
	result, err := orchestrator.ProcessTurn(ctx, turn)
	if printErr := printResult(cmd.OutOrStdout(), pipeline.NewReport(result, err)); printErr != nil {
		return errors.Join(err, printErr)
	}
	if err != nil {
		logger.Error("turn failed", zap.Error(err))
		return fmt.Errorf("turn failed: %w", err)
	}
	return nil
}
