package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/pear/internal/api"
	"github.com/MikeSquared-Agency/pear/internal/hermes"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the NATS transcript subscriber",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			p, err := ctx.buildPipeline(runCtx)
			if err != nil {
				return err
			}
			defer p.Close()

			logger := ctx.log()
			if p.hermes != nil {
				if err := p.hermes.QueueSubscribe(hermes.SubjectTranscriptSubmitted, hermes.WorkerQueue, p.proc.HandleTranscriptSubmitted); err != nil {
					return err
				}
			} else {
				logger.Warn("NATS not configured; only the HTTP API accepts transcripts")
			}

			srv := api.NewServer(p.store, p.engine, p.proc, logger)
			logger.Info("pear ready", "port", cfg.Port, "domains", len(p.proc.Domains()))

			if err := srv.ListenAndServe(runCtx, cfg.Addr()); err != nil {
				return err
			}
			logger.Info("pear stopped")
			return nil
		},
	}
}
