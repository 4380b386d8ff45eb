package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/payportal/internal/common"
	"github.com/dmitrijs2005/payportal/internal/dbx"
	"github.com/dmitrijs2005/payportal/internal/server/models"
	"github.com/dmitrijs2005/payportal/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/payportal/internal/server/repositories/batches"
	"github.com/dmitrijs2005/payportal/internal/server/repositories/transactions"
	"github.com/google/uuid"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// --- accounts ---

type fakeAccounts struct {
	mu   sync.Mutex
	byID map[string]*models.Account

	err error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byID: map[string]*models.Account{}}
}

func (f *fakeAccounts) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, x := range f.byID {
		if x.Username == a.Username || x.Email == a.Email ||
			(a.AccountNumber != "" && x.AccountNumber == a.AccountNumber) {
			return nil, common.ErrConflict
		}
	}
	c := *a
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now()
	f.byID[c.ID] = &c
	return &c, nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return a, nil
}

func (f *fakeAccounts) GetByIdentifier(_ context.Context, identifier string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, match := range []func(*models.Account) bool{
		func(a *models.Account) bool { return a.Username == identifier },
		func(a *models.Account) bool { return a.Email == identifier },
		func(a *models.Account) bool { return a.AccountNumber != "" && a.AccountNumber == identifier },
	} {
		for _, a := range f.byID {
			if match(a) {
				return a, nil
			}
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeAccounts) CountByRole(_ context.Context, role models.Role) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	n := 0
	for _, a := range f.byID {
		if a.EffectiveRole() == role {
			n++
		}
	}
	return n, nil
}

// --- transactions ---

type fakeTransactions struct {
	mu    sync.Mutex
	byID  map[string]*models.Transaction
	clock time.Time

	err       error
	markErrOn string
	// hideKeys makes the first idempotency lookup miss, as if a concurrent
	// request inserted the same key in between.
	hideKeys bool
}

func newFakeTransactions() *fakeTransactions {
	return &fakeTransactions{
		byID:  map[string]*models.Transaction{},
		clock: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fakeTransactions) Create(_ context.Context, t *models.Transaction) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if t.IdempotencyKey != "" {
		for _, x := range f.byID {
			if x.OwnerID == t.OwnerID && x.IdempotencyKey == t.IdempotencyKey {
				return nil, common.ErrConflict
			}
		}
	}
	c := *t
	c.ID = uuid.NewString()
	c.Status = models.StatusPending
	f.clock = f.clock.Add(time.Second)
	c.CreatedAt = f.clock
	f.byID[c.ID] = &c
	out := c
	return &out, nil
}

func (f *fakeTransactions) GetByID(_ context.Context, id string) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *t
	return &out, nil
}

func (f *fakeTransactions) GetByIdempotencyKey(_ context.Context, ownerID, key string) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.hideKeys {
		f.hideKeys = false
		return nil, common.ErrorNotFound
	}
	for _, t := range f.byID {
		if t.OwnerID == ownerID && t.IdempotencyKey == key {
			out := *t
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeTransactions) sorted(keep func(*models.Transaction) bool) []*models.Transaction {
	var out []*models.Transaction
	for _, t := range f.byID {
		if keep(t) {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakeTransactions) List(_ context.Context, flt transactions.Filter) ([]*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := f.sorted(func(t *models.Transaction) bool {
		return (flt.OwnerID == "" || t.OwnerID == flt.OwnerID) && (flt.Status == "" || t.Status == flt.Status)
	})
	if flt.Limit > 0 && len(out) > flt.Limit {
		out = out[:flt.Limit]
	}
	return out, nil
}

func (f *fakeTransactions) Resolve(_ context.Context, id string, status models.TransactionStatus, actorID string, at time.Time) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if t.Status != models.StatusPending {
		return nil, common.ErrAlreadyResolved
	}
	t.Status = status
	t.ResolvedBy = actorID
	t.ResolvedAt = &at
	out := *t
	return &out, nil
}

func (f *fakeTransactions) ListVerified(_ context.Context) ([]*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.sorted(func(t *models.Transaction) bool { return t.Status == models.StatusVerified }), nil
}

func (f *fakeTransactions) MarkSubmitted(_ context.Context, id, batchID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErrOn == id {
		return false, errBoom{}
	}
	t, ok := f.byID[id]
	if !ok || t.Status != models.StatusVerified {
		return false, nil
	}
	t.Status = models.StatusSubmitted
	t.BatchID = batchID
	t.SubmittedAt = &at
	return true, nil
}

func (f *fakeTransactions) status(id string) models.TransactionStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id].Status
}

func (f *fakeTransactions) setStatus(id string, s models.TransactionStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[id].Status = s
}

// --- batches ---

type fakeBatches struct {
	mu      sync.Mutex
	created []*models.Batch
	counts  []int
	err     error
}

func (f *fakeBatches) Create(_ context.Context, b *models.Batch, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, b)
	f.counts = append(f.counts, count)
	return nil
}

// --- manager ---

type fakeRepoManager struct {
	a *fakeAccounts
	t *fakeTransactions
	b *fakeBatches
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{a: newFakeAccounts(), t: newFakeTransactions(), b: &fakeBatches{}}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error  { return nil }
func (m *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository         { return m.a }
func (m *fakeRepoManager) Transactions(dbx.DBTX) transactions.Repository { return m.t }
func (m *fakeRepoManager) Batches(dbx.DBTX) batches.Repository           { return m.b }
