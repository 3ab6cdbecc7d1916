package domain

import (
	"errors"
	"time"
)

// User is a back-office operator of one company.
type User struct {
	ID             string
	TenantID       string
	Email          string
	Name           string
	HashedPassword string
	Role           Role
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Active         bool
}

// Role represents a user's access level
type Role string

const (
	// RoleAdmin manages users and triggers background jobs
	RoleAdmin Role = "admin"

	// RoleManager opens and closes registers, withdraws cash and cancels charges
	RoleManager Role = "manager"

	// RoleStaff records payments and movements
	RoleStaff Role = "staff"
)

var roleRank = map[Role]int{
	RoleStaff:   1,
	RoleManager: 2,
	RoleAdmin:   3,
}

// IsValid checks if the role is a valid role
func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r grants every permission of min.
func (r Role) AtLeast(min Role) bool {
	return r.IsValid() && roleRank[r] >= roleRank[min]
}

// CanManageRegister checks if the role can open, close and withdraw from a register
func (r Role) CanManageRegister() bool {
	return r.AtLeast(RoleManager)
}

// CanRunJobs checks if the role can trigger billing jobs
func (r Role) CanRunJobs() bool {
	return r == RoleAdmin
}

// Authentication errors
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInsufficientRole = errors.New("insufficient role for this operation")
)
