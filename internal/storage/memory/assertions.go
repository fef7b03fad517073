package memory

import "github.com/tinoosan/spendlog/internal/service/transaction"

// Compile-time interface assertions documenting which interfaces Store satisfies.
var (
	_ transaction.Repo   = (*Store)(nil)
	_ transaction.Writer = (*Store)(nil)
)
