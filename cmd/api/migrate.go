package main

import (
	"github.com/spf13/cobra"

	"github.com/zhouzirui/aura/backend/internal/storage"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the chat tables or indexes for the configured storage driver",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			repo, err := storage.Open(cmd.Context(), cfg.Storage)
			if err != nil {
				return err
			}
			log.Info("schema up to date", "driver", cfg.Storage.Driver)
			return repo.Close()
		},
	}
}
