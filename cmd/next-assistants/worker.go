package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-assistants/internal/worker"
)

func workerCommand(configPath *string) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume queued runs and generate assistant replies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ctx := cmd.Context()

			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if concurrency > 0 {
				a.cfg.Worker.Concurrency = concurrency
			}

			svc, err := a.services(ctx)
			if err != nil {
				a.logger.Error("failed to init services", zap.Error(err))
				return err
			}
			defer svc.Close()

			w, err := worker.New(svc.Consumers, svc.Processor, worker.Options{
				BatchSize:   a.cfg.Queue.BatchSize,
				MetricsAddr: a.cfg.Worker.MetricsAddr,
			}, a.logger.Named("worker"))
			if err != nil {
				return err
			}
			return w.Run(ctx)
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent consumers (overrides worker.concurrency)")
	return cmd
}
