package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/payportal/internal/common"
	"github.com/dmitrijs2005/payportal/internal/dbx"
	"github.com/dmitrijs2005/payportal/internal/logging"
	"github.com/dmitrijs2005/payportal/internal/server/models"
	"github.com/dmitrijs2005/payportal/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/payportal/internal/server/repositories/transactions"
	"github.com/dmitrijs2005/payportal/internal/validation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HistoryLimit caps an owner's transaction history.
const HistoryLimit = 10

// PaymentInput is a payment instruction as submitted by a customer.
type PaymentInput struct {
	Recipient      string          `json:"recipient"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	AccountNumber  string          `json:"accountNumber"`
	SwiftCode      string          `json:"swiftCode"`
	IdempotencyKey string          `json:"-"`
}

// TransactionService owns every status change of a transaction.
type TransactionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         func() time.Time
}

func NewTransactionService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *TransactionService {
	return &TransactionService{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "transactions"),
		now:         time.Now,
	}
}

func (s *TransactionService) validate(in PaymentInput, typ models.TransactionType) error {
	reasons := []validation.Reason{
		validation.CheckRecipient(in.Recipient),
		validation.CheckAmount(in.Amount),
		validation.CheckCurrency(in.Currency),
		validation.CheckAccountNumber(in.AccountNumber),
	}

	switch typ {
	case models.TransactionLocal:
	case models.TransactionInternational:
		reasons = append(reasons, validation.CheckRoutingCode(in.SwiftCode))
	default:
		return common.NewValidationError("type", "unsupported_type")
	}

	return validation.First(reasons...)
}

// Create stores a pending transaction for ownerID. With an idempotency key,
// a repeated request returns the transaction created first and created is
// false.
func (s *TransactionService) Create(ctx context.Context, ownerID string, in PaymentInput, typ models.TransactionType) (t *models.Transaction, created bool, err error) {
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	in.Recipient = strings.TrimSpace(in.Recipient)

	if err := s.validate(in, typ); err != nil {
		return nil, false, err
	}

	if _, err := uuid.Parse(ownerID); err != nil {
		return nil, false, fmt.Errorf("%w: account %q", common.ErrorNotFound, ownerID)
	}
	if _, err := s.repomanager.Accounts(s.db).GetByID(ctx, ownerID); err != nil {
		return nil, false, storageError(err)
	}

	repo := s.repomanager.Transactions(s.db)

	if in.IdempotencyKey != "" {
		existing, err := repo.GetByIdempotencyKey(ctx, ownerID, in.IdempotencyKey)
		switch {
		case err == nil:
			return existing, false, nil
		case !errors.Is(err, common.ErrorNotFound):
			return nil, false, storageError(err)
		}
	}

	tx := &models.Transaction{
		OwnerID:        ownerID,
		Recipient:      in.Recipient,
		Amount:         in.Amount,
		Currency:       in.Currency,
		AccountNumber:  in.AccountNumber,
		Type:           typ,
		Status:         models.StatusPending,
		IdempotencyKey: in.IdempotencyKey,
	}
	if typ == models.TransactionInternational {
		tx.RoutingCode = in.SwiftCode
	}

	t, err = repo.Create(ctx, tx)
	if err != nil {
		// A concurrent request with the same key won the insert.
		if in.IdempotencyKey != "" && errors.Is(err, common.ErrConflict) {
			if existing, getErr := repo.GetByIdempotencyKey(ctx, ownerID, in.IdempotencyKey); getErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, storageError(err)
	}

	s.logger.Info(ctx, "transaction created", "id", t.ID, "owner_id", ownerID, "type", typ)
	return t, true, nil
}

// Resolve moves a pending transaction to verified or rejected. Only one of
// several concurrent calls can win; the others get ErrAlreadyResolved.
func (s *TransactionService) Resolve(ctx context.Context, id string, outcome models.TransactionStatus, actor models.Principal) (*models.Transaction, error) {
	if !actor.Is(models.RoleEmployee) {
		return nil, common.ErrInsufficientPermissions
	}
	if outcome != models.StatusVerified && outcome != models.StatusRejected {
		return nil, common.NewValidationError("status", "unsupported_outcome")
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: transaction %q", common.ErrorNotFound, id)
	}

	t, err := s.repomanager.Transactions(s.db).Resolve(ctx, id, outcome, actor.AccountID, s.now())
	if err != nil {
		if errors.Is(err, common.ErrAlreadyResolved) {
			s.logger.Info(ctx, "transaction already resolved", "id", id, "by", actor.AccountID)
		}
		return nil, storageError(err)
	}

	s.logger.Info(ctx, "transaction resolved", "id", id, "status", outcome, "by", actor.AccountID)
	return t, nil
}

// List returns transactions matching f, newest first.
func (s *TransactionService) List(ctx context.Context, f transactions.Filter) ([]*models.Transaction, error) {
	list, err := s.repomanager.Transactions(s.db).List(ctx, f)
	if err != nil {
		return nil, storageError(err)
	}
	if list == nil {
		list = []*models.Transaction{}
	}
	return list, nil
}

// History lists the newest transactions of ownerID. The actor must be the
// owner or a verified employee.
func (s *TransactionService) History(ctx context.Context, actor models.Principal, ownerID string) ([]*models.Transaction, error) {
	if actor.AccountID != ownerID && !actor.Is(models.RoleEmployee) {
		return nil, common.ErrInsufficientPermissions
	}
	if _, err := uuid.Parse(ownerID); err != nil {
		return nil, fmt.Errorf("%w: account %q", common.ErrorNotFound, ownerID)
	}
	return s.List(ctx, transactions.Filter{OwnerID: ownerID, Limit: HistoryLimit})
}

// PrepareBatch collects every verified transaction that has not been
// submitted yet. Nothing is written.
func (s *TransactionService) PrepareBatch(ctx context.Context) (*models.Batch, error) {
	verified, err := s.repomanager.Transactions(s.db).ListVerified(ctx)
	if err != nil {
		return nil, storageError(err)
	}
	if verified == nil {
		verified = []*models.Transaction{}
	}
	return &models.Batch{
		ID:           uuid.NewString(),
		Transactions: verified,
		PreparedAt:   s.now(),
	}, nil
}

// MarkSubmitted moves the batch's transactions from verified to submitted
// and records the batch, all in one database transaction. It returns the ids
// that actually changed; a transaction no longer verified is skipped.
func (s *TransactionService) MarkSubmitted(ctx context.Context, b *models.Batch) ([]string, error) {
	if len(b.Transactions) == 0 {
		return []string{}, nil
	}

	var submitted []string
	at := s.now()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		submitted = submitted[:0]
		repo := s.repomanager.Transactions(tx)

		for _, t := range b.Transactions {
			ok, err := repo.MarkSubmitted(ctx, t.ID, b.ID, at)
			if err != nil {
				return err
			}
			if ok {
				submitted = append(submitted, t.ID)
			}
		}

		if len(submitted) == 0 {
			return nil
		}
		b.SubmittedAt = &at
		return s.repomanager.Batches(tx).Create(ctx, b, len(submitted))
	})
	if err != nil {
		b.SubmittedAt = nil
		return nil, storageError(err)
	}

	if submitted == nil {
		submitted = []string{}
	}
	s.logger.Info(ctx, "batch submitted", "batch_id", b.ID, "count", len(submitted), "prepared", len(b.Transactions))
	return submitted, nil
}
