package postgres

import "github.com/tinoosan/spendlog/internal/service/transaction"

var (
	_ transaction.Repo   = (*Store)(nil)
	_ transaction.Writer = (*Store)(nil)
)
