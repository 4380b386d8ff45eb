package batches

import (
	"context"

	"github.com/dmitrijs2005/payportal/internal/server/models"
)

type Repository interface {
	// Create records a submitted batch holding count transactions.
	Create(ctx context.Context, b *models.Batch, count int) error
}
