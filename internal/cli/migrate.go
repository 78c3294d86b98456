package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/refereat/refereat-server/internal/common/database"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const migrateTimeout = 2 * time.Minute

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(cmd.Context(), migrateTimeout)
	defer cancel()
	ctx, end := beginSegment(ctx, "migrate")
	defer end()

	db, err := database.NewDB(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db.DB); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	logger.Info("database migrated",
		zap.String("host", cfg.DB.Host),
		zap.String("database", cfg.DB.DBName),
		zap.Int("statements", len(database.Migrations())),
	)
	return nil
}
