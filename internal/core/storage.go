package core

import (
	"fmt"

	"github.com/rs/zerolog"

	"schoolcore/internal/infra/persistence/memory"
	"schoolcore/internal/infra/persistence/postgres"
	"schoolcore/internal/infra/persistence/snapshot"
	"schoolcore/internal/infra/persistence/sqlite"
	"schoolcore/internal/platform/config"
	"schoolcore/pkg/domain"
)

// OpenPersistentStore selects a backend from cfg.Driver
// (memory|sqlite|postgres|snapshot). An empty driver selects sqlite.
func OpenPersistentStore(cfg config.Storage, engine *domain.RulesEngine, logger zerolog.Logger) (domain.PersistentStore, error) {
	if engine == nil {
		engine = NewRulesEngine()
	}
	driver := cfg.Driver
	if driver == "" {
		driver = config.StorageSQLite
	}
	logger.Debug().Str("driver", driver).Msg("opening store")
	switch driver {
	case config.StorageMemory:
		return memory.NewStore(engine), nil
	case config.StorageSQLite:
		return openStore(sqlite.NewStore(cfg.SQLitePath, engine))
	case config.StoragePostgres:
		return openStore(postgres.NewStore(cfg.PostgresDSN, engine))
	case config.StorageSnapshot:
		return openStore(snapshot.NewStore(cfg.SnapshotPath, engine, snapshot.WithLogger(logger)))
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// openStore returns a nil interface on failure rather than one wrapping a nil
// backend pointer.
func openStore(store domain.PersistentStore, err error) (domain.PersistentStore, error) {
	if err != nil {
		return nil, err
	}
	return store, nil
}
