//go:build sqlite && !postgres

package main

import (
	"iprange/internal/observability"
	"iprange/internal/storage"
	sqlitestore "iprange/internal/storage/sqlite"
)

func sqliteDSN(cfg *Config) string {
	if cfg.SQLiteDSN != "" {
		return cfg.SQLiteDSN
	}
	return "file:iprange.db?cache=shared&_fk=1"
}

// selectStore returns a SQLite-backed store when built with the 'sqlite' tag.
// Configure with sqlite_dsn in the config file or the SQLITE_DSN env var.
func selectStore(logger observability.Logger, cfg *Config) storage.Store {
	dsn := sqliteDSN(cfg)
	st, err := sqlitestore.New(dsn)
	if err != nil {
		logger.Error("sqlite init failed; falling back to memory store", "error", err)
		return storage.NewMemoryStore()
	}
	logger.Info("using sqlite store", "dsn", dsn)
	return st
}

func sqliteStatus(cfg *Config) string {
	s, err := sqlitestore.Status(sqliteDSN(cfg))
	if err != nil {
		return ""
	}
	return s
}

func postgresStatus(_ *Config) string { return "" }
