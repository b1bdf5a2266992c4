package main

import (
	"github.com/spf13/cobra"
)

func migrateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.db.Migrate(); err != nil {
				return err
			}
			a.logger.Info("migration completed")
			return nil
		},
	}
}
