package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dmitrijs2005/payportal/internal/common"
	"github.com/dmitrijs2005/payportal/internal/logging"
	"github.com/dmitrijs2005/payportal/internal/server/models"
	"github.com/dmitrijs2005/payportal/internal/server/services"
)

type fakeAccounts struct {
	signupErr error
	loginErr  error
	lastLogin string
	added     []services.EmployeeInput
	actor     models.Principal
	dashboard *services.Dashboard
}

func (f *fakeAccounts) Signup(_ context.Context, in services.SignupInput) (*models.Account, error) {
	if f.signupErr != nil {
		return nil, f.signupErr
	}
	return &models.Account{ID: "acc-new", Username: in.Username}, nil
}

func (f *fakeAccounts) Login(_ context.Context, identifier, _ string) (*services.Session, error) {
	f.lastLogin = identifier
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &services.Session{
		Token:   "tok-customer",
		Account: &models.Account{ID: "cust-1", Username: identifier, FirstName: "Ann", LastName: "Lee"},
	}, nil
}

func (f *fakeAccounts) EmployeeLogin(_ context.Context, identifier, _ string) (*services.Session, error) {
	f.lastLogin = identifier
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &services.Session{
		Token:   "tok-employee",
		Account: &models.Account{ID: "emp-1", Username: identifier, Role: models.RoleEmployee},
	}, nil
}

func (f *fakeAccounts) AddEmployee(_ context.Context, actor models.Principal, in services.EmployeeInput) (*models.Account, error) {
	f.actor = actor
	f.added = append(f.added, in)
	return &models.Account{ID: "emp-new", Username: in.Username, Role: models.RoleEmployee}, nil
}

func (f *fakeAccounts) Dashboard(_ context.Context, actor models.Principal) (*services.Dashboard, error) {
	f.actor = actor
	if f.dashboard == nil {
		return &services.Dashboard{PendingTransactions: []*models.Transaction{}}, nil
	}
	return f.dashboard, nil
}

type createCall struct {
	owner string
	in    services.PaymentInput
	typ   models.TransactionType
}

type fakeTransactions struct {
	creates   []createCall
	replay    bool
	createErr error
	resolved  map[string]models.TransactionStatus
	history   map[string][]*models.Transaction
	batch     *models.Batch
}

func (f *fakeTransactions) Create(_ context.Context, ownerID string, in services.PaymentInput, typ models.TransactionType) (*models.Transaction, bool, error) {
	f.creates = append(f.creates, createCall{owner: ownerID, in: in, typ: typ})
	if f.createErr != nil {
		return nil, false, f.createErr
	}
	return &models.Transaction{
		ID:       "tx-1",
		OwnerID:  ownerID,
		Amount:   in.Amount,
		Currency: in.Currency,
		Type:     typ,
		Status:   models.StatusPending,
	}, !f.replay, nil
}

func (f *fakeTransactions) Resolve(_ context.Context, id string, outcome models.TransactionStatus, actor models.Principal) (*models.Transaction, error) {
	if !actor.Is(models.RoleEmployee) {
		return nil, common.ErrInsufficientPermissions
	}
	if f.resolved == nil {
		f.resolved = map[string]models.TransactionStatus{}
	}
	if _, ok := f.resolved[id]; ok {
		return nil, fmt.Errorf("%w: %s", common.ErrAlreadyResolved, id)
	}
	f.resolved[id] = outcome
	return &models.Transaction{ID: id, Status: outcome, ResolvedBy: actor.AccountID}, nil
}

func (f *fakeTransactions) History(_ context.Context, actor models.Principal, ownerID string) ([]*models.Transaction, error) {
	if actor.AccountID != ownerID && !actor.Is(models.RoleEmployee) {
		return nil, common.ErrInsufficientPermissions
	}
	txs := f.history[ownerID]
	if txs == nil {
		txs = []*models.Transaction{}
	}
	return txs, nil
}

func (f *fakeTransactions) PrepareBatch(context.Context) (*models.Batch, error) {
	if f.batch == nil {
		return &models.Batch{ID: "b-empty", Transactions: []*models.Transaction{}}, nil
	}
	return f.batch, nil
}

// fakeAuth maps tokens to principals and account ids to stored roles.
type fakeAuth struct {
	tokens map[string]models.Principal
	roles  map[string]models.Role
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{
		tokens: map[string]models.Principal{
			"tok-customer": {AccountID: "cust-1", Username: "ann", Role: models.RoleCustomer},
			"tok-employee": {AccountID: "emp-1", Username: "boss", Role: models.RoleEmployee},
			// Claims employee but the stored account is a customer.
			"tok-forged": {AccountID: "cust-2", Username: "eve", Role: models.RoleEmployee},
		},
		roles: map[string]models.Role{
			"cust-1": models.RoleCustomer,
			"cust-2": models.RoleCustomer,
			"emp-1":  models.RoleEmployee,
		},
	}
}

func (f *fakeAuth) Authenticate(token string) (models.Principal, error) {
	p, ok := f.tokens[token]
	if !ok {
		return models.Principal{}, common.ErrInvalidToken
	}
	return p, nil
}

func (f *fakeAuth) AuthorizeRole(_ context.Context, p models.Principal, role models.Role) (models.Principal, error) {
	stored, ok := f.roles[p.AccountID]
	if !ok || stored != role {
		return models.Principal{}, common.ErrInsufficientPermissions
	}
	p.Role = stored
	p.RoleVerified = true
	return p, nil
}

type fakeRunner struct {
	ids []string
	err error
}

func (f *fakeRunner) Run(context.Context) ([]string, error) {
	return f.ids, f.err
}

type testAPI struct {
	accounts     *fakeAccounts
	transactions *fakeTransactions
	auth         *fakeAuth
	handler      http.Handler
}

func newTestAPI(t *testing.T, runner BatchRunner) *testAPI {
	t.Helper()

	api := &testAPI{
		accounts:     &fakeAccounts{},
		transactions: &fakeTransactions{},
		auth:         newFakeAuth(),
	}
	api.handler = NewRouter(Deps{
		Accounts:     api.accounts,
		Transactions: api.transactions,
		Auth:         api.auth,
		Batches:      runner,
		Logger:       logging.Nop(),
		CORSOrigin:   "https://localhost:3000",
	})
	return api
}

func (a *testAPI) do(method, path, token, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}
