package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/interview-proctor/internal/media"
)

var speakCmd = &cobra.Command{
	Use:   "speak <text>",
	Short: "Synthesize a question as audio (silence when synthesis is unavailable)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSpeak,
}

func init() {
	rootCmd.AddCommand(speakCmd)

	speakCmd.Flags().StringP("out", "O", "", "output file (default question<ext> in current directory)")
}

func runSpeak(cmd *cobra.Command, args []string) error {
	logger, cfg := setup()
	ctx := cmd.Context()

	audio := newSynthesizer(ctx, newProviders(cfg, logger)).Synthesize(ctx, strings.Join(args, " "))

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = "question" + media.ExtensionFor(audio.MIMEType)
	}
	if err := os.WriteFile(out, audio.Data, 0o644); err != nil {
		return fmt.Errorf("write audio: %w", err)
	}

	logger.Info("audio written",
		zap.String("file", out),
		zap.String("mime_type", audio.MIMEType),
		zap.Bool("placeholder", audio.Placeholder),
	)
	return nil
}
