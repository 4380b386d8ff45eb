package rest

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/payportal/internal/common"
	"github.com/dmitrijs2005/payportal/internal/server/models"
	"github.com/dmitrijs2005/payportal/internal/server/services"
	"github.com/go-chi/chi/v5"
)

const maxIdempotencyKeyLen = 128

type transactionResponse struct {
	Message     string              `json:"message"`
	Transaction *models.Transaction `json:"transaction"`
}

type batchResponse struct {
	Count        int                   `json:"count"`
	Transactions []*models.Transaction `json:"transactions"`
}

type submitResponse struct {
	Submitted []string `json:"submitted"`
	Count     int      `json:"count"`
}

// createPayment handles both payment endpoints. The owner is always the
// authenticated account; any owner id in the body is ignored.
func (h *Handler) createPayment(typ models.TransactionType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in services.PaymentInput
		if err := decodeJSON(w, r, &in); err != nil {
			h.respondWithError(w, r, err)
			return
		}

		key := strings.TrimSpace(r.Header.Get(common.IdempotencyKeyHeader))
		if len(key) > maxIdempotencyKeyLen {
			h.respondWithError(w, r, common.NewValidationError("idempotencyKey", "too_long"))
			return
		}
		in.IdempotencyKey = key

		p := principalFrom(r.Context())
		tx, created, err := h.transactions.Create(r.Context(), p.AccountID, in, typ)
		if err != nil {
			h.respondWithError(w, r, err)
			return
		}

		code := http.StatusCreated
		if !created {
			code = http.StatusOK
		}

		respondWithJSON(w, code, transactionResponse{
			Message:     paymentMessage(typ),
			Transaction: tx,
		})
	}
}

func paymentMessage(typ models.TransactionType) string {
	if typ == models.TransactionInternational {
		return "International payment created successfully"
	}
	return "Local payment created successfully"
}

// history lets customers read their own transactions. Anybody else must be
// an employee.
func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "userId")
	p := principalFrom(r.Context())

	if p.AccountID != ownerID {
		var err error
		p, err = h.auth.AuthorizeRole(r.Context(), p, models.RoleEmployee)
		if err != nil {
			h.respondWithError(w, r, err)
			return
		}
	}

	txs, err := h.transactions.History(r.Context(), p, ownerID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, txs)
}

func (h *Handler) resolve(outcome models.TransactionStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		tx, err := h.transactions.Resolve(r.Context(), id, outcome, principalFrom(r.Context()))
		if err != nil {
			h.respondWithError(w, r, err)
			return
		}

		respondWithJSON(w, http.StatusOK, transactionResponse{
			Message:     fmt.Sprintf("Transaction %s %s", tx.ID, outcome),
			Transaction: tx,
		})
	}
}

func (h *Handler) pendingBatch(w http.ResponseWriter, r *http.Request) {
	b, err := h.transactions.PrepareBatch(r.Context())
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, batchResponse{
		Count:        len(b.Transactions),
		Transactions: b.Transactions,
	})
}

func (h *Handler) submitBatch(w http.ResponseWriter, r *http.Request) {
	if h.batches == nil {
		h.respondWithError(w, r, fmt.Errorf("%w: network submitter not configured", common.ErrorInternal))
		return
	}

	ids, err := h.batches.Run(r.Context())
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, submitResponse{Submitted: ids, Count: len(ids)})
}
