package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/pear/internal/batch"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		limit  int
		dryRun bool
		force  bool
		kind   string
		dir    string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process every new transcript from the configured source",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			src, err := ctx.newSource(runCtx, kind, dir)
			if err != nil {
				return err
			}
			p, err := ctx.buildPipeline(runCtx)
			if err != nil {
				return err
			}
			defer p.Close()

			runner := batch.NewRunner(batch.Config{
				StateFile: cfg.StateFile,
				LockFile:  cfg.LockFile,
				Limit:     limit,
				DryRun:    dryRun,
				Force:     force,
			}, src, p.proc, p.notifier(), cmd.OutOrStdout(), ctx.log())

			_, err = runner.Run(runCtx)
			return err
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Stop after this many processed transcripts (0 = no limit)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List what would be processed without calling the model")
	cmd.Flags().BoolVar(&force, "force", false, "Reprocess transcripts already recorded in the state file")
	cmd.Flags().StringVar(&kind, "source", "", "Override PEAR_SOURCE (local, minio or drive)")
	cmd.Flags().StringVar(&dir, "dir", "", "Override PEAR_SOURCE_DIR for the local source")

	return cmd
}
