package models

import "time"

const (
	RoleAdmin      = "admin"
	RoleFranchisee = "franchisee"
)

type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email,omitempty"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"` // admin or franchisee
	FranchiseID  *int64 `json:"franchise_id,omitempty"`
	IsActive     bool   `json:"is_active"`

	// FranchiseStatus mirrors the owning franchisee's review status
	FranchiseStatus string    `json:"franchise_status,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// LoginRequest accepts a username or an email in Username
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// CanSignIn reports whether the account may use the API right now
func (u *User) CanSignIn() bool {
	if !u.IsActive {
		return false
	}
	return u.Role == RoleAdmin || u.FranchiseStatus == FranchiseStatusApproved
}
