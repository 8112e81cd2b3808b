package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/interview-proctor/internal/inbox"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Process turn manifests dropped into the inbox directory",
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("dir", "", "inbox directory (default from inbox.dir)")
	watchCmd.Flags().String("out-dir", "", "directory for result files (default from inbox.out-dir)")

	viper.BindPFlag("inbox.dir", watchCmd.Flags().Lookup("dir"))
	viper.BindPFlag("inbox.out-dir", watchCmd.Flags().Lookup("out-dir"))
}

func runWatch(cmd *cobra.Command, _ []string) error {
	logger, cfg := setup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orchestrator := buildPipeline(ctx, cfg, logger)
	return inbox.New(cfg.Inbox.Dir, cfg.Inbox.OutDir, orchestrator, logger).Run(ctx)
}
