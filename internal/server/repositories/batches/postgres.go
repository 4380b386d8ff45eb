// Package batches records network submission batches in PostgreSQL.
package batches

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/payportal/internal/dbx"
	"github.com/dmitrijs2005/payportal/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, b *models.Batch, count int) error {
	if b.SubmittedAt == nil {
		return fmt.Errorf("batch %s has no submission time", b.ID)
	}

	query := `
		INSERT INTO submission_batches (id, manifest_key, transaction_count, prepared_at, submitted_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	manifest := sql.NullString{String: b.ManifestKey, Valid: b.ManifestKey != ""}
	if _, err := r.db.ExecContext(ctx, query, b.ID, manifest, count, b.PreparedAt, *b.SubmittedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
