// Package rest is the HTTP API of the portal.
package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/payportal/internal/logging"
	"github.com/dmitrijs2005/payportal/internal/server/models"
	"github.com/dmitrijs2005/payportal/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type AccountAPI interface {
	Signup(ctx context.Context, in services.SignupInput) (*models.Account, error)
	Login(ctx context.Context, identifier, password string) (*services.Session, error)
	EmployeeLogin(ctx context.Context, identifier, password string) (*services.Session, error)
	AddEmployee(ctx context.Context, actor models.Principal, in services.EmployeeInput) (*models.Account, error)
	Dashboard(ctx context.Context, actor models.Principal) (*services.Dashboard, error)
}

type TransactionAPI interface {
	Create(ctx context.Context, ownerID string, in services.PaymentInput, typ models.TransactionType) (*models.Transaction, bool, error)
	Resolve(ctx context.Context, id string, outcome models.TransactionStatus, actor models.Principal) (*models.Transaction, error)
	History(ctx context.Context, actor models.Principal, ownerID string) ([]*models.Transaction, error)
	PrepareBatch(ctx context.Context) (*models.Batch, error)
}

// Authorizer is implemented by *access.Controller.
type Authorizer interface {
	Authenticate(token string) (models.Principal, error)
	AuthorizeRole(ctx context.Context, p models.Principal, role models.Role) (models.Principal, error)
}

// BatchRunner submits verified transactions to the clearing network.
type BatchRunner interface {
	Run(ctx context.Context) ([]string, error)
}

type Deps struct {
	Accounts     AccountAPI
	Transactions TransactionAPI
	Auth         Authorizer
	// Batches is nil when no broker is configured.
	Batches        BatchRunner
	Logger         logging.Logger
	CORSOrigin     string
	RequestTimeout time.Duration
}

type Handler struct {
	accounts     AccountAPI
	transactions TransactionAPI
	auth         Authorizer
	batches      BatchRunner
	logger       logging.Logger
}

// NewRouter wires every route of the API.
func NewRouter(d Deps) http.Handler {
	h := &Handler{
		accounts:     d.Accounts,
		transactions: d.Transactions,
		auth:         d.Auth,
		batches:      d.Batches,
		logger:       d.Logger.With("module", "rest"),
	}

	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(h.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	if d.CORSOrigin != "" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{d.CORSOrigin},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
			ExposedHeaders:   []string{"Retry-After"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("healthy"))
	})

	r.Post("/signup", h.signup)
	r.Post("/login", h.login)
	r.Post("/employee/login", h.employeeLogin)

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)

		r.Post("/local-payment", h.createPayment(models.TransactionLocal))
		r.Post("/international-payment", h.createPayment(models.TransactionInternational))
		r.Get("/transactions/{userId}", h.history)

		r.Group(func(r chi.Router) {
			r.Use(h.requireRole(models.RoleEmployee))

			r.Post("/transactions/{id}/verify", h.resolve(models.StatusVerified))
			r.Post("/transactions/{id}/reject", h.resolve(models.StatusRejected))
			r.Get("/employee-dashboard", h.dashboard)
			r.Post("/add-employee", h.addEmployee)
			r.Get("/batches/pending", h.pendingBatch)
			r.Post("/batches/submit", h.submitBatch)
		})
	})

	return r
}
