package services

import (
	"context"
	"strings"

	"franchise-billing/internal/logger"
	"franchise-billing/internal/models"

	"github.com/sirupsen/logrus"
)

// FranchiseeService is the admin review workflow
type FranchiseeService struct {
	Repo FranchiseeStore
	log  *logrus.Entry
}

func NewFranchiseeService(repo FranchiseeStore) *FranchiseeService {
	return &FranchiseeService{Repo: repo, log: logger.For("franchisees")}
}

func (s *FranchiseeService) List(ctx context.Context, status string) ([]*models.Franchisee, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case "", models.FranchiseStatusPending, models.FranchiseStatusApproved, models.FranchiseStatusRejected:
	default:
		return nil, invalid("status must be pending, approved or rejected")
	}
	return s.Repo.List(ctx, status)
}

func (s *FranchiseeService) Get(ctx context.Context, id int64) (*models.Franchisee, error) {
	return s.Repo.Get(ctx, id)
}

func (s *FranchiseeService) Approve(ctx context.Context, id int64, req *models.ReviewRequest, reviewerID int64) (*models.Franchisee, error) {
	return s.review(ctx, id, models.FranchiseStatusApproved, req, reviewerID)
}

func (s *FranchiseeService) Reject(ctx context.Context, id int64, req *models.ReviewRequest, reviewerID int64) (*models.Franchisee, error) {
	return s.review(ctx, id, models.FranchiseStatusRejected, req, reviewerID)
}

func (s *FranchiseeService) review(ctx context.Context, id int64, status string, req *models.ReviewRequest, reviewerID int64) (*models.Franchisee, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	f, err := s.Repo.Review(ctx, id, status, strings.TrimSpace(req.AdminNotes), reviewerID)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"franchise_id": id,
		"status":       status,
		"reviewer_id":  reviewerID,
	}).Info("franchisee reviewed")
	return f, nil
}
