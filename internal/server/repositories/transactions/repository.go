package transactions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/payportal/internal/server/models"
)

// Filter narrows List. Zero values mean "any".
type Filter struct {
	OwnerID string
	Status  models.TransactionStatus
	Limit   int
}

type Repository interface {
	Create(ctx context.Context, t *models.Transaction) (*models.Transaction, error)
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	GetByIdempotencyKey(ctx context.Context, ownerID, key string) (*models.Transaction, error)
	List(ctx context.Context, f Filter) ([]*models.Transaction, error)

	// Resolve moves a pending transaction to status in a single conditional
	// update. It returns common.ErrAlreadyResolved when the row is no longer
	// pending and common.ErrorNotFound when it does not exist.
	Resolve(ctx context.Context, id string, status models.TransactionStatus, actorID string, at time.Time) (*models.Transaction, error)

	ListVerified(ctx context.Context) ([]*models.Transaction, error)

	// MarkSubmitted flips one verified transaction to submitted and reports
	// whether this call made the change.
	MarkSubmitted(ctx context.Context, id, batchID string, at time.Time) (bool, error)
}
