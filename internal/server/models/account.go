// Package models contains the domain records persisted by the portal.
package models

import "time"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleEmployee Role = "employee"
)

// Account is a customer or staff principal. Role is empty for accounts
// created through public signup; EffectiveRole treats that as a customer.
type Account struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Role          Role      `json:"role,omitempty"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	AccountNumber string    `json:"accountNumber,omitempty"`
	IDNumber      string    `json:"idNumber,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (a *Account) EffectiveRole() Role {
	if a.Role == "" {
		return RoleCustomer
	}
	return a.Role
}
