package accounts

import (
	"context"

	"github.com/dmitrijs2005/payportal/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, a *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	// GetByIdentifier matches username, then email, then account number.
	GetByIdentifier(ctx context.Context, identifier string) (*models.Account, error)
	CountByRole(ctx context.Context, role models.Role) (int, error)
}
