package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bitfantasy/mechai/internal/config"
	"github.com/bitfantasy/mechai/internal/database"
	"github.com/bitfantasy/mechai/internal/shared/storage"
	"github.com/bitfantasy/mechai/internal/shop/repository"
	"github.com/bitfantasy/mechai/internal/shop/service"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the shop tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := openDB()
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "migrated %d tables\n", len(database.Models()))
		return nil
	},
}

var promptCmd = &cobra.Command{
	Use:   "prompt <part-id>",
	Short: "Print the prompt a generation request for the part would send",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner := ownerID
		if owner == "" {
			owner = config.GetEnvOrDefault("SHOP_OWNER_ID", "")
		}
		if owner == "" {
			return fmt.Errorf("an owner is required: pass --owner or set SHOP_OWNER_ID")
		}

		cfg, db, err := openDB()
		if err != nil {
			return err
		}
		// 仅本地预览目录，不连接 MinIO
		files, err := storage.NewLocal(cfg.Server.UploadDir, cfg.MinIO.PreviewCacheSize, cfg.Itinerary.MaxPreviewBytes)
		if err != nil {
			return err
		}
		svc := service.NewItineraryService(repository.NewRepositories(db), service.ItineraryOptions{Files: files})

		prompt, err := svc.ComposePrompt(cmd.Context(), owner, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), prompt)
		return nil
	},
}

func openDB() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	level := logger.Warn
	switch logLevel {
	case "debug", "info":
		level = logger.Info
	case "error":
		level = logger.Error
	}
	db, err := database.Open(cfg.Database, level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}
