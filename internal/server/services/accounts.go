package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/payportal/internal/common"
	"github.com/dmitrijs2005/payportal/internal/logging"
	"github.com/dmitrijs2005/payportal/internal/server/bruteforce"
	"github.com/dmitrijs2005/payportal/internal/server/credentials"
	"github.com/dmitrijs2005/payportal/internal/server/models"
	"github.com/dmitrijs2005/payportal/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/payportal/internal/server/repositories/transactions"
	"github.com/dmitrijs2005/payportal/internal/validation"
)

var errInvalidCredentials = fmt.Errorf("%w: invalid credentials", common.ErrorUnauthorized)

// TokenIssuer signs session tokens for an authenticated account.
type TokenIssuer interface {
	Issue(a *models.Account) (string, error)
}

// Session is returned by a successful login.
type Session struct {
	Token   string          `json:"token"`
	Account *models.Account `json:"account"`
}

type SignupInput struct {
	Username      string `json:"username"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	AccountNumber string `json:"accountNumber"`
	IDNumber      string `json:"idNumber"`
}

type EmployeeInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	IDNumber  string `json:"idNumber"`
}

// Dashboard is the staff overview.
type Dashboard struct {
	PendingTransactions []*models.Transaction `json:"pendingTransactions"`
	EmployeeCount       int                   `json:"employeeCount"`
}

// AccountService handles customer signup, both login realms and staff
// provisioning.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      TokenIssuer
	guard       *bruteforce.Guard
	logger      logging.Logger
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, tokens TokenIssuer, guard *bruteforce.Guard, logger logging.Logger) *AccountService {
	return &AccountService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
		guard:       guard,
		logger:      logger.With("module", "accounts"),
	}
}

// Signup creates a customer account. Role is left unset and reads as
// customer.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (*models.Account, error) {
	if err := validation.First(
		validation.CheckUsername(in.Username),
		validation.CheckEmail(in.Email),
		validation.CheckAccountNumber(in.AccountNumber),
		validation.CheckPassword(in.Password),
	); err != nil {
		return nil, err
	}

	hash, err := credentials.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	a, err := s.repomanager.Accounts(s.db).Create(ctx, &models.Account{
		Username:      in.Username,
		Email:         in.Email,
		PasswordHash:  hash,
		FirstName:     strings.TrimSpace(in.FirstName),
		LastName:      strings.TrimSpace(in.LastName),
		AccountNumber: in.AccountNumber,
		IDNumber:      strings.TrimSpace(in.IDNumber),
	})
	if err != nil {
		return nil, storageError(err)
	}

	s.logger.Info(ctx, "account created", "account_id", a.ID)
	return a, nil
}

// Login authenticates a customer by username, email or account number.
func (s *AccountService) Login(ctx context.Context, identifier, password string) (*Session, error) {
	return s.login(ctx, bruteforce.RealmCustomer, models.RoleCustomer, identifier, password,
		validation.CheckIdentifier(identifier))
}

// EmployeeLogin authenticates staff by username or email.
func (s *AccountService) EmployeeLogin(ctx context.Context, identifier, password string) (*Session, error) {
	return s.login(ctx, bruteforce.RealmEmployee, models.RoleEmployee, identifier, password,
		validation.CheckStaffIdentifier(identifier))
}

func (s *AccountService) login(ctx context.Context, realm bruteforce.Realm, role models.Role, identifier, password string, check validation.Reason) (*Session, error) {
	if err := validation.First(check); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, common.NewValidationError("password", string(validation.PasswordTooShort))
	}

	key := bruteforce.Key(realm, identifier)
	if err := s.acquire(ctx, realm, key); err != nil {
		return nil, err
	}

	a, err := s.repomanager.Accounts(s.db).GetByIdentifier(ctx, identifier)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		credentials.VerifyDummy(password)
		return nil, s.loginFailed(ctx, realm)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	accountKey := bruteforce.AccountKey(realm, a.ID)
	if err := s.acquire(ctx, realm, accountKey); err != nil {
		return nil, err
	}

	// The password is checked before the realm so both failures cost the same.
	if !credentials.Verify(password, a.PasswordHash) || a.EffectiveRole() != role {
		return nil, s.loginFailed(ctx, realm)
	}

	for _, k := range []string{key, accountKey} {
		if err := s.guard.RecordSuccess(ctx, k); err != nil {
			return nil, err
		}
	}

	token, err := s.tokens.Issue(a)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	s.logger.Info(ctx, "login succeeded", "realm", realm, "account_id", a.ID)
	return &Session{Token: token, Account: a}, nil
}

// acquire reserves an attempt on key. Every attempt counts as a failure
// until a successful login clears it.
func (s *AccountService) acquire(ctx context.Context, realm bruteforce.Realm, key string) error {
	err := s.guard.Acquire(ctx, key)
	if errors.Is(err, common.ErrTooManyAttempts) {
		s.logger.Warn(ctx, "login locked out", "realm", realm)
	}
	return err
}

func (s *AccountService) loginFailed(ctx context.Context, realm bruteforce.Realm) error {
	s.logger.Warn(ctx, "login failed", "realm", realm)
	return errInvalidCredentials
}

// CreateEmployee provisions a staff account. Callers are trusted: the
// provisioning CLI and AddEmployee after its role check.
func (s *AccountService) CreateEmployee(ctx context.Context, in EmployeeInput) (*models.Account, error) {
	if err := validation.First(
		validation.CheckUsername(in.Username),
		validation.CheckEmail(in.Email),
		validation.CheckPassword(in.Password),
		validation.CheckName(in.FirstName),
		validation.CheckName(in.LastName),
	); err != nil {
		return nil, err
	}

	hash, err := credentials.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	a, err := s.repomanager.Accounts(s.db).Create(ctx, &models.Account{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         models.RoleEmployee,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		IDNumber:     strings.TrimSpace(in.IDNumber),
	})
	if err != nil {
		return nil, storageError(err)
	}

	s.logger.Info(ctx, "employee created", "account_id", a.ID)
	return a, nil
}

// AddEmployee is CreateEmployee on behalf of an authenticated staff member.
func (s *AccountService) AddEmployee(ctx context.Context, actor models.Principal, in EmployeeInput) (*models.Account, error) {
	if !actor.Is(models.RoleEmployee) {
		return nil, common.ErrInsufficientPermissions
	}
	a, err := s.CreateEmployee(ctx, in)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "employee added", "account_id", a.ID, "by", actor.AccountID)
	return a, nil
}

// Dashboard lists pending transactions and counts staff.
func (s *AccountService) Dashboard(ctx context.Context, actor models.Principal) (*Dashboard, error) {
	if !actor.Is(models.RoleEmployee) {
		return nil, common.ErrInsufficientPermissions
	}

	pending, err := s.repomanager.Transactions(s.db).List(ctx, transactions.Filter{Status: models.StatusPending})
	if err != nil {
		return nil, storageError(err)
	}

	count, err := s.repomanager.Accounts(s.db).CountByRole(ctx, models.RoleEmployee)
	if err != nil {
		return nil, storageError(err)
	}

	if pending == nil {
		pending = []*models.Transaction{}
	}
	return &Dashboard{PendingTransactions: pending, EmployeeCount: count}, nil
}
