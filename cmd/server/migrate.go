package main

import (
	"github.com/spf13/cobra"

	"regenai-go/pkg/database"
	"regenai-go/pkg/log"
)

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			db, err := database.Open(cfg.Database.URL, cfg.Debug)
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := migrate(db); err != nil {
				return err
			}
			log.Infof("数据库迁移完成，共 %d 张表", len(allModels))
			return nil
		},
	}
}
