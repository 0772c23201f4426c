// File: internal/company/service.go
package company

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AryanBhardwaj123/placement-tracker/internal/common"
)

// Service defines the interface for company business logic.
type Service interface {
	GetAll(ctx context.Context) ([]Company, error)
	Create(ctx context.Context, req CreateCompanyRequest) (*Company, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateCompanyRequest) (*Company, error)
	Delete(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	UpcomingDeadlines(ctx context.Context, within time.Duration) ([]Company, error)
}

type serviceImpl struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a new company service.
func NewService(repo Repository, logger *zap.Logger) Service {
	return &serviceImpl{repo: repo, logger: logger}
}

func (s *serviceImpl) GetAll(ctx context.Context) ([]Company, error) {
	return s.repo.FindAll(ctx)
}

func (s *serviceImpl) Create(ctx context.Context, req CreateCompanyRequest) (*Company, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, common.ErrBadRequest.WithDetails("Please add a company name")
	}
	deadline, err := parseDeadline(req.Deadline)
	if err != nil {
		return nil, common.ErrBadRequest.WithDetails(err.Error())
	}
	status := req.Status
	if status == "" {
		status = StatusApplied
	}
	company := &Company{
		Name:     strings.TrimSpace(req.Name),
		Deadline: deadline,
		Status:   status,
		Notes:    req.Notes,
	}
	if err := s.repo.Create(ctx, company); err != nil {
		s.logger.Error("Failed to create company", zap.Error(err))
		return nil, err
	}
	s.logger.Info("Company created", zap.String("id", company.ID.String()), zap.String("name", company.Name))
	return company, nil
}

func (s *serviceImpl) Update(ctx context.Context, id uuid.UUID, req UpdateCompanyRequest) (*Company, error) {
	company, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, common.ErrBadRequest.WithDetails("Please add a company name")
		}
		company.Name = strings.TrimSpace(*req.Name)
	}
	if req.Deadline != nil {
		deadline, err := parseDeadline(*req.Deadline)
		if err != nil {
			return nil, common.ErrBadRequest.WithDetails(err.Error())
		}
		company.Deadline = deadline
	}
	if req.Status != nil {
		company.Status = *req.Status
	}
	if req.Notes != nil {
		company.Notes = *req.Notes
	}
	if err := s.repo.Update(ctx, company); err != nil {
		s.logger.Error("Failed to update company", zap.String("id", id.String()), zap.Error(err))
		return nil, err
	}
	return company, nil
}

func (s *serviceImpl) Delete(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	if err := s.repo.Delete(ctx, id); err != nil {
		return uuid.Nil, err
	}
	s.logger.Info("Company deleted", zap.String("id", id.String()))
	return id, nil
}

func (s *serviceImpl) UpcomingDeadlines(ctx context.Context, within time.Duration) ([]Company, error) {
	now := time.Now()
	return s.repo.FindWithDeadlineBetween(ctx, now, now.Add(within))
}
