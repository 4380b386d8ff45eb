package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/payportal/internal/dbx"
	"github.com/dmitrijs2005/payportal/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/payportal/internal/server/repositories/batches"
	"github.com/dmitrijs2005/payportal/internal/server/repositories/transactions"
)

// RepositoryManager vends repositories bound to a DBTX, so the same service
// code runs against *sql.DB or inside a *sql.Tx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Transactions(db dbx.DBTX) transactions.Repository
	Batches(db dbx.DBTX) batches.Repository
}
