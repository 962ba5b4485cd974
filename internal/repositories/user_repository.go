package repositories

import (
	"context"
	"errors"

	"franchise-billing/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

type UserRepository struct {
	DB *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{DB: db}
}

const userSelect = `SELECT u.id, u.username, COALESCE(u.email, ''), u.password_hash, u.role, u.franchise_id,
                u.is_active, COALESCE(f.status, ''), u.created_at, u.updated_at
         FROM users u
         LEFT JOIN franchisees f ON f.id = u.franchise_id`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.FranchiseID,
		&u.IsActive, &u.FranchiseStatus, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	return createUser(ctx, r.DB, u)
}

func createUser(ctx context.Context, q querier, u *models.User) error {
	return q.QueryRow(ctx,
		`INSERT INTO users(username, email, password_hash, role, franchise_id, is_active)
         VALUES($1, NULLIF($2, ''), $3, $4, $5, $6)
         RETURNING id, created_at, updated_at`,
		u.Username, u.Email, u.PasswordHash, u.Role, u.FranchiseID, u.IsActive,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

func (r *UserRepository) Get(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(r.DB.QueryRow(ctx,
		userSelect+` WHERE u.id = $1`, id))
}

// GetByLogin finds a user by username or email, case-insensitively
func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	return scanUser(r.DB.QueryRow(ctx,
		userSelect+` WHERE LOWER(u.username) = LOWER($1) OR LOWER(u.email) = LOWER($1)
         ORDER BY u.id LIMIT 1`, login))
}

func (r *UserRepository) CountAdmins(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = 'admin'`).Scan(&n)
	return n, err
}
