package httpapi

import (
	"github.com/tinoosan/spendlog/internal/storage/postgres"
	"github.com/tinoosan/spendlog/internal/storage/sqlite"
)

// Compile-time assertions for the SQL stores against the readiness probe.
var (
	_ ReadyChecker = (*postgres.Store)(nil)
	_ ReadyChecker = (*sqlite.Store)(nil)
)
