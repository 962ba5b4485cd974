package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"franchise-billing/internal/auth"
	"franchise-billing/internal/billing"
	"franchise-billing/internal/logger"
	"franchise-billing/internal/models"
	"franchise-billing/internal/repositories"

	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountSuspended   = errors.New("account suspended, please contact administrator")
	ErrNotApproved        = errors.New("franchise registration is awaiting approval")
	ErrRejected           = errors.New("franchise registration was rejected")
	ErrCodeUnavailable    = errors.New("franchise code already in use")
)

type UserStore interface {
	Get(ctx context.Context, id int64) (*models.User, error)
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	CountAdmins(ctx context.Context) (int, error)
}

type FranchiseeStore interface {
	Register(ctx context.Context, f *models.Franchisee, u *models.User) error
	CodeInUse(ctx context.Context, code string) (bool, error)
	Get(ctx context.Context, id int64) (*models.Franchisee, error)
	List(ctx context.Context, status string) ([]*models.Franchisee, error)
	Review(ctx context.Context, id int64, status, notes string, reviewerID int64) (*models.Franchisee, error)
}

type AuthService struct {
	Users       UserStore
	Franchisees FranchiseeStore
	JWTManager  *auth.JWTManager
	log         *logrus.Entry
}

func NewAuthService(users UserStore, franchisees FranchiseeStore, jwtManager *auth.JWTManager) *AuthService {
	return &AuthService{
		Users:       users,
		Franchisees: franchisees,
		JWTManager:  jwtManager,
		log:         logger.For("auth"),
	}
}

// Register creates a pending franchisee and its login user. The franchise
// code is taken from the request or derived from the franchise name.
func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.Franchisee, error) {
	req.FranchiseName = strings.TrimSpace(req.FranchiseName)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	req.Code = strings.TrimSpace(req.Code)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	code, err := s.pickCode(ctx, req)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	username := req.Username
	if username == "" {
		username = req.Email
	}

	f := &models.Franchisee{
		FranchiseName: req.FranchiseName,
		Code:          code,
		FullName:      strings.TrimSpace(req.FullName),
		Email:         req.Email,
		Location:      strings.TrimSpace(req.Location),
		PhoneNumber:   strings.TrimSpace(req.PhoneNumber),
		Status:        models.FranchiseStatusPending,
	}
	u := &models.User{
		Username:     username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         models.RoleFranchisee,
		IsActive:     true,
	}
	if err := s.Franchisees.Register(ctx, f, u); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"franchise_id": f.ID, "code": f.Code}).Info("franchisee registered")
	return f, nil
}

func (s *AuthService) pickCode(ctx context.Context, req *models.RegisterRequest) (string, error) {
	if req.Code != "" {
		inUse, err := s.Franchisees.CodeInUse(ctx, req.Code)
		if err != nil {
			return "", err
		}
		if inUse {
			return "", ErrCodeUnavailable
		}
		return req.Code, nil
	}

	candidates, err := billing.CodeCandidates(req.FranchiseName)
	if err != nil {
		return "", invalid("franchise_name must contain at least two letters")
	}
	for _, c := range candidates {
		inUse, err := s.Franchisees.CodeInUse(ctx, c)
		if err != nil {
			return "", err
		}
		if !inUse {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: no free code for %q, send one explicitly", ErrCodeUnavailable, req.FranchiseName)
}

// Login checks credentials and issues a token. Franchisee accounts must be
// approved.
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	user, err := s.Users.GetByLogin(ctx, strings.TrimSpace(req.Username))
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountSuspended
	}
	if user.Role != models.RoleAdmin {
		switch user.FranchiseStatus {
		case models.FranchiseStatusApproved:
		case models.FranchiseStatusRejected:
			return nil, ErrRejected
		default:
			return nil, ErrNotApproved
		}
	}

	token, err := s.JWTManager.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: user}, nil
}

// EnsureAdmin creates the first admin account when none exists
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	n, err := s.Users.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	u := &models.User{Username: username, PasswordHash: hash, Role: models.RoleAdmin, IsActive: true}
	if err := s.Users.Create(ctx, u); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	s.log.WithField("username", username).Info("bootstrap admin created")
	return nil
}
