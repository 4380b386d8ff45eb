// Package accounts provides the PostgreSQL repository for customer and staff
// accounts.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/payportal/internal/common"
	"github.com/dmitrijs2005/payportal/internal/dbx"
	"github.com/dmitrijs2005/payportal/internal/server/models"
)

const accountColumns = `id, username, email, password_hash, role, first_name, last_name, account_number, id_number, created_at`

// constraint name -> field reported in the conflict error
var uniqueFields = map[string]string{
	"accounts_username_key":       "username",
	"accounts_email_key":          "email",
	"accounts_account_number_key": "account number",
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (username, email, password_hash, role, first_name, last_name, account_number, id_number)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		a.Username, a.Email, a.PasswordHash, nullString(string(a.Role)),
		a.FirstName, a.LastName, nullString(a.AccountNumber), nullString(a.IDNumber),
	).Scan(&a.ID, &a.CreatedAt)

	if err != nil {
		if constraint, ok := dbx.UniqueViolation(err); ok {
			field := uniqueFields[constraint]
			if field == "" {
				field = "account"
			}
			return nil, fmt.Errorf("%w: %s already registered", common.ErrConflict, field)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return a, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByIdentifier(ctx context.Context, identifier string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
		 WHERE username = $1 OR email = $1 OR account_number = $1
		 ORDER BY (username = $1) DESC, (email = $1) DESC
		 LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, identifier))
}

func (r *PostgresRepository) CountByRole(ctx context.Context, role models.Role) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE role = $1`, string(role)).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.Account, error) {
	a := &models.Account{}
	var role, accountNumber, idNumber sql.NullString

	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &role,
		&a.FirstName, &a.LastName, &accountNumber, &idNumber, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	a.Role = models.Role(role.String)
	a.AccountNumber = accountNumber.String
	a.IDNumber = idNumber.String
	return a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
