// Package provision implements the operator command line used to migrate
// the database and create staff accounts outside the public API.
package provision

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/payportal/internal/logging"
	"github.com/dmitrijs2005/payportal/internal/server/models"
	"github.com/dmitrijs2005/payportal/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/payportal/internal/server/services"
)

// Backend is what the commands need from the database.
type Backend interface {
	Migrate(ctx context.Context) error
	CreateEmployee(ctx context.Context, in services.EmployeeInput) (*models.Account, error)
	Close() error
}

// Connect opens a Backend for dsn.
type Connect func(ctx context.Context, dsn string) (Backend, error)

type postgresBackend struct {
	db       *sql.DB
	manager  repomanager.RepositoryManager
	accounts *services.AccountService
}

// ConnectPostgres is the production Connect.
func ConnectPostgres(logger logging.Logger) Connect {
	return func(ctx context.Context, dsn string) (Backend, error) {
		db, err := repomanager.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		m := repomanager.NewPostgresRepositoryManager()
		// Provisioning never logs anybody in, so no token issuer or guard.
		return &postgresBackend{
			db:       db,
			manager:  m,
			accounts: services.NewAccountService(db, m, nil, nil, logger),
		}, nil
	}
}

func (b *postgresBackend) Migrate(ctx context.Context) error {
	return b.manager.RunMigrations(ctx, b.db)
}

func (b *postgresBackend) CreateEmployee(ctx context.Context, in services.EmployeeInput) (*models.Account, error) {
	return b.accounts.CreateEmployee(ctx, in)
}

func (b *postgresBackend) Close() error {
	return b.db.Close()
}
