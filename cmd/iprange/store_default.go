//go:build !sqlite && !postgres

package main

import (
	"iprange/internal/observability"
	"iprange/internal/storage"
)

// selectStore returns the in-memory store when built without a database tag.
// Build with -tags sqlite or -tags postgres for persistence.
func selectStore(logger observability.Logger, cfg *Config) storage.Store {
	if cfg.SQLiteDSN != "" {
		logger.Warn("sqlite_dsn set, but binary not built with -tags sqlite; using in-memory store")
	}
	if cfg.DatabaseURL != "" {
		logger.Warn("database_url set, but binary not built with -tags postgres; using in-memory store")
	}
	return storage.NewMemoryStore()
}

func sqliteStatus(_ *Config) string { return "" }

func postgresStatus(_ *Config) string { return "" }
