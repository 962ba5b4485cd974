package repositories

import (
	"context"
	"errors"
	"fmt"

	"franchise-billing/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrDuplicateFranchise = errors.New("franchise name, code, email or username already registered")
	ErrAlreadyReviewed    = errors.New("franchisee has already been reviewed")
)

type FranchiseeRepository struct {
	DB *pgxpool.Pool
}

func NewFranchiseeRepository(db *pgxpool.Pool) *FranchiseeRepository {
	return &FranchiseeRepository{DB: db}
}

const franchiseeColumns = `id, franchise_name, code, full_name, email, location, phone_number, status,
       admin_notes, reviewed_by, reviewed_at, created_at, updated_at`

func scanFranchisee(row pgx.Row) (*models.Franchisee, error) {
	var f models.Franchisee
	err := row.Scan(&f.ID, &f.FranchiseName, &f.Code, &f.FullName, &f.Email, &f.Location,
		&f.PhoneNumber, &f.Status, &f.AdminNotes, &f.ReviewedBy, &f.ReviewedAt, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Register inserts the franchisee and its login user in one transaction
func (r *FranchiseeRepository) Register(ctx context.Context, f *models.Franchisee, u *models.User) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO franchisees(franchise_name, code, full_name, email, location, phone_number, status)
         VALUES($1, $2, $3, $4, $5, $6, $7)
         RETURNING id, created_at, updated_at`,
		f.FranchiseName, f.Code, f.FullName, f.Email, f.Location, f.PhoneNumber, f.Status,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if isUniqueViolation(err, "") {
		return ErrDuplicateFranchise
	}
	if err != nil {
		return fmt.Errorf("insert franchisee: %w", err)
	}

	u.FranchiseID = &f.ID
	if err := createUser(ctx, tx, u); err != nil {
		if isUniqueViolation(err, "") {
			return ErrDuplicateFranchise
		}
		return fmt.Errorf("insert franchisee user: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *FranchiseeRepository) CodeInUse(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM franchisees WHERE code = $1)`, code).Scan(&exists)
	return exists, err
}

func (r *FranchiseeRepository) Get(ctx context.Context, id int64) (*models.Franchisee, error) {
	return scanFranchisee(r.DB.QueryRow(ctx,
		`SELECT `+franchiseeColumns+` FROM franchisees WHERE id=$1`, id))
}

// List returns franchisees, optionally filtered by status
func (r *FranchiseeRepository) List(ctx context.Context, status string) ([]*models.Franchisee, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+franchiseeColumns+` FROM franchisees
         WHERE ($1 = '' OR status = $1)
         ORDER BY created_at DESC`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Franchisee
	for rows.Next() {
		f, err := scanFranchisee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Review moves a pending franchisee to approved or rejected
func (r *FranchiseeRepository) Review(ctx context.Context, id int64, status, notes string, reviewerID int64) (*models.Franchisee, error) {
	f, err := scanFranchisee(r.DB.QueryRow(ctx,
		`UPDATE franchisees
         SET status = $2, admin_notes = NULLIF($3, ''), reviewed_by = $4,
             reviewed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
         WHERE id = $1 AND status = 'pending'
         RETURNING `+franchiseeColumns,
		id, status, notes, reviewerID))
	if errors.Is(err, ErrNotFound) {
		if _, getErr := r.Get(ctx, id); getErr == nil {
			return nil, ErrAlreadyReviewed
		}
	}
	return f, err
}
