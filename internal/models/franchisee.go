package models

import "time"

const (
	FranchiseStatusPending  = "pending"
	FranchiseStatusApproved = "approved"
	FranchiseStatusRejected = "rejected"
)

type Franchisee struct {
	ID            int64      `json:"id"`
	FranchiseName string     `json:"franchise_name"`
	Code          string     `json:"code"`
	FullName      string     `json:"full_name"`
	Email         string     `json:"email"`
	Location      string     `json:"location"`
	PhoneNumber   string     `json:"phone_number"`
	Status        string     `json:"status"` // pending, approved or rejected
	AdminNotes    *string    `json:"admin_notes,omitempty"`
	ReviewedBy    *int64     `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// RegisterRequest is the franchisee self-registration body
type RegisterRequest struct {
	FranchiseName string `json:"franchise_name" validate:"required,max=150"`
	FullName      string `json:"full_name" validate:"required,max=150"`
	Email         string `json:"email" validate:"required,email"`
	Location      string `json:"location" validate:"required,max=255"`
	PhoneNumber   string `json:"phone_number" validate:"required,max=20"`
	Username      string `json:"username" validate:"omitempty,min=3,max=100"`
	Password      string `json:"password" validate:"required,min=6"`
	// Code is optional; derived from the franchise name when empty
	Code string `json:"code" validate:"omitempty,min=2,max=3,alpha,uppercase"`
}

type ReviewRequest struct {
	AdminNotes string `json:"admin_notes" validate:"max=2000"`
}
