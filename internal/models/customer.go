package models

import "time"

type Customer struct {
	ID          int64     `json:"id"`
	FranchiseID int64     `json:"franchise_id"`
	Phone       string    `json:"phone"`
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	Address     string    `json:"address,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type UpsertCustomerRequest struct {
	Phone   string `json:"phone" validate:"required,max=20"`
	Name    string `json:"name" validate:"required,max=150"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address string `json:"address"`
}
