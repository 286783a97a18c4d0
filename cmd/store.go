package cmd

import (
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/store/postgres"
)

// openStore opens the configured storage backend. PostgreSQL is selected
// when DATABASE_URL is set, otherwise the file backend under the storage
// directory is used.
func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.Database.URL != "" {
		fmt.Printf("Connecting to PostgreSQL database...\n")
		st, err := postgres.Open(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		fmt.Printf("Using PostgreSQL backend\n")
		return st, nil
	}

	st, err := store.OpenFileStore(cfg.Storage.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open file store in %s: %w", cfg.Storage.Dir, err)
	}
	fmt.Printf("Using file backend in %s\n", cfg.Storage.Dir)
	return st, nil
}
