package cmd

import (
	"fmt"

	"github.com/koopa0/sage/db"
	"github.com/koopa0/sage/internal/config"
)

// runMigrate applies pending database migrations. Only the storage config
// is validated; migrations never touch the provider.
func runMigrate() error {
	cfg, err := config.LoadStorage()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	fmt.Println("Migrations applied.")
	return nil
}
