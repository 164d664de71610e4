package infrastructure

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"scorecard-engine/application"
	"scorecard-engine/config"
)

// OpenStore returns the Store selected by cfg.StoreDriver.
func OpenStore(cfg *config.Configuration, log *logrus.Entry) (application.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		store := NewMemoryStore()
		if cfg.SeedDemo {
			if err := store.SeedDemo(); err != nil {
				return nil, fmt.Errorf("failed to seed memory store: %w", err)
			}
		}
		log.Info("✅ Using in-memory store")
		return store, nil
	case config.DriverMySQL:
		db, err := NewMySQLConnection(cfg.DSN, cfg.SeedDemo, log)
		if err != nil {
			return nil, err
		}
		return NewScorecardRepository(db), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
