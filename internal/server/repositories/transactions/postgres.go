// Package transactions provides the PostgreSQL repository for payment
// instructions. Every status change is a conditional UPDATE keyed on the
// expected current status, so concurrent writers cannot both win.
package transactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/payportal/internal/common"
	"github.com/dmitrijs2005/payportal/internal/dbx"
	"github.com/dmitrijs2005/payportal/internal/server/models"
)

const txColumns = `id, owner_id, recipient, amount, currency, account_number, routing_code, type, status, idempotency_key, created_at, resolved_at, resolved_by, submitted_at, batch_id`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (*models.Transaction, error) {
	t := &models.Transaction{}
	var routing, idem, resolvedBy, batchID sql.NullString
	var resolvedAt, submittedAt sql.NullTime

	if err := s.Scan(&t.ID, &t.OwnerID, &t.Recipient, &t.Amount, &t.Currency, &t.AccountNumber,
		&routing, &t.Type, &t.Status, &idem, &t.CreatedAt, &resolvedAt, &resolvedBy, &submittedAt, &batchID); err != nil {
		return nil, err
	}

	t.RoutingCode = routing.String
	t.IdempotencyKey = idem.String
	t.ResolvedBy = resolvedBy.String
	t.BatchID = batchID.String
	if resolvedAt.Valid {
		at := resolvedAt.Time
		t.ResolvedAt = &at
	}
	if submittedAt.Valid {
		at := submittedAt.Time
		t.SubmittedAt = &at
	}
	return t, nil
}

func (r *PostgresRepository) Create(ctx context.Context, t *models.Transaction) (*models.Transaction, error) {
	query :=
		`INSERT INTO transactions (owner_id, recipient, amount, currency, account_number, routing_code, type, idempotency_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING ` + txColumns

	row := r.db.QueryRowContext(ctx, query,
		t.OwnerID, t.Recipient, t.Amount, t.Currency, t.AccountNumber,
		nullString(t.RoutingCode), string(t.Type), nullString(t.IdempotencyKey))

	created, err := scanTransaction(row)
	if err != nil {
		if _, ok := dbx.UniqueViolation(err); ok {
			return nil, fmt.Errorf("%w: idempotency key already used", common.ErrConflict)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return created, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetByIdempotencyKey(ctx context.Context, ownerID, key string) (*models.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE owner_id = $1 AND idempotency_key = $2`
	return r.getOne(ctx, query, ownerID, key)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

// List returns matching transactions newest first.
func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]*models.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if f.OwnerID != "" {
		args = append(args, f.OwnerID)
		where = append(where, "owner_id = $"+strconv.Itoa(len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}

	query := `SELECT ` + txColumns + ` FROM transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	return r.query(ctx, query, args...)
}

func (r *PostgresRepository) ListVerified(ctx context.Context) ([]*models.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE status = 'verified' ORDER BY created_at`
	return r.query(ctx, query)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Resolve(ctx context.Context, id string, status models.TransactionStatus, actorID string, at time.Time) (*models.Transaction, error) {
	query :=
		`UPDATE transactions
		 SET status = $2, resolved_at = $3, resolved_by = $4
		 WHERE id = $1 AND status = 'pending'
		 RETURNING ` + txColumns

	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, id, string(status), at, actorID))
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("db error: %w", err)
	}

	// Nothing updated: either the id is unknown or someone resolved it first.
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if !exists {
		return nil, common.ErrorNotFound
	}
	return nil, common.ErrAlreadyResolved
}

func (r *PostgresRepository) MarkSubmitted(ctx context.Context, id, batchID string, at time.Time) (bool, error) {
	query :=
		`UPDATE transactions
		 SET status = 'submitted', submitted_at = $3, batch_id = $2
		 WHERE id = $1 AND status = 'verified'`

	res, err := r.db.ExecContext(ctx, query, id, batchID, at)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
