package rest

import (
	"net/http"

	"github.com/dmitrijs2005/payportal/internal/server/models"
	"github.com/dmitrijs2005/payportal/internal/server/services"
)

type credentials struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

// identifier accepts the explicit field first, then the legacy username field.
func (c credentials) identifier() string {
	if c.Identifier != "" {
		return c.Identifier
	}
	return c.Username
}

type signupResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

type loginResponse struct {
	Message    string `json:"message"`
	Token      string `json:"token"`
	UserID     string `json:"userId,omitempty"`
	EmployeeID string `json:"employeeId,omitempty"`
	Username   string `json:"username"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
}

type employeeResponse struct {
	Message    string `json:"message"`
	EmployeeID string `json:"employeeId"`
}

type dashboardResponse struct {
	Message             string                `json:"message"`
	PendingTransactions []*models.Transaction `json:"pendingTransactions"`
	EmployeeCount       int                   `json:"employeeCount"`
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var in services.SignupInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	acc, err := h.accounts.Signup(r.Context(), in)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, signupResponse{
		Message: "User registered successfully",
		UserID:  acc.ID,
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decodeJSON(w, r, &c); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	s, err := h.accounts.Login(r.Context(), c.identifier(), c.Password)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, loginResponse{
		Message:   "Authentication successful",
		Token:     s.Token,
		UserID:    s.Account.ID,
		Username:  s.Account.Username,
		FirstName: s.Account.FirstName,
		LastName:  s.Account.LastName,
	})
}

func (h *Handler) employeeLogin(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decodeJSON(w, r, &c); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	s, err := h.accounts.EmployeeLogin(r.Context(), c.identifier(), c.Password)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, loginResponse{
		Message:    "Authentication successful",
		Token:      s.Token,
		EmployeeID: s.Account.ID,
		Username:   s.Account.Username,
		FirstName:  s.Account.FirstName,
		LastName:   s.Account.LastName,
	})
}

func (h *Handler) addEmployee(w http.ResponseWriter, r *http.Request) {
	var in services.EmployeeInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	acc, err := h.accounts.AddEmployee(r.Context(), principalFrom(r.Context()), in)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, employeeResponse{
		Message:    "Employee added successfully",
		EmployeeID: acc.ID,
	})
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.accounts.Dashboard(r.Context(), principalFrom(r.Context()))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, dashboardResponse{
		Message:             "Welcome to the employee dashboard",
		PendingTransactions: d.PendingTransactions,
		EmployeeCount:       d.EmployeeCount,
	})
}
