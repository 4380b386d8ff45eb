// Package access authenticates bearer tokens and authorizes roles against
// the live account record. The role carried in a token is only a hint.
package access

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/payportal/internal/common"
	"github.com/dmitrijs2005/payportal/internal/server/auth"
	"github.com/dmitrijs2005/payportal/internal/server/models"
)

// TokenVerifier checks a signed session token.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// AccountFinder loads an account by id.
type AccountFinder interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
}

type Controller struct {
	tokens   TokenVerifier
	accounts AccountFinder
}

func NewController(tokens TokenVerifier, accounts AccountFinder) *Controller {
	return &Controller{tokens: tokens, accounts: accounts}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: missing bearer token", common.ErrorUnauthorized)
	}
	return strings.TrimSpace(token), nil
}

// Authenticate verifies token and returns the unverified principal it names.
func (c *Controller) Authenticate(token string) (models.Principal, error) {
	if token == "" {
		return models.Principal{}, fmt.Errorf("%w: missing bearer token", common.ErrorUnauthorized)
	}
	claims, err := c.tokens.Verify(token)
	if err != nil {
		return models.Principal{}, err
	}
	return claims.Principal(), nil
}

// AuthorizeRole reloads the principal's account and requires its stored
// role to equal role. The returned principal carries the stored role.
func (c *Controller) AuthorizeRole(ctx context.Context, p models.Principal, role models.Role) (models.Principal, error) {
	a, err := c.Resolve(ctx, p)
	if err != nil {
		return models.Principal{}, err
	}
	if !a.Is(role) {
		return models.Principal{}, common.ErrInsufficientPermissions
	}
	return a, nil
}

// Resolve replaces the token's role hint with the role stored for the
// account. A missing account is a permission failure.
func (c *Controller) Resolve(ctx context.Context, p models.Principal) (models.Principal, error) {
	a, err := c.accounts.GetByID(ctx, p.AccountID)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return models.Principal{}, common.ErrInsufficientPermissions
	case err != nil:
		return models.Principal{}, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	return models.Principal{
		AccountID:    a.ID,
		Username:     a.Username,
		Role:         a.EffectiveRole(),
		RoleVerified: true,
	}, nil
}
