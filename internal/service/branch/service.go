// Package branch реализует справочник филиалов ресторана.
package branch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant-oms/internal/domain"
)

// Service управляет филиалами.
type Service struct {
	branches domain.BranchRepository
	logger   *log.Entry
}

// NewService создаёт сервис филиалов.
func NewService(branches domain.BranchRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "branch_service")
	}
	return &Service{branches: branches, logger: logger}
}

// Create регистрирует новый филиал. Новый филиал сразу активен.
func (s *Service) Create(ctx context.Context, name, location string) (domain.Branch, error) {
	now := time.Now().UTC()
	branch := domain.Branch{
		ID:        uuid.NewString(),
		Name:      name,
		Location:  location,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errs := branch.Validate(); len(errs) != 0 {
		return domain.Branch{}, errors.Join(errs...)
	}
	branch, err := s.branches.Save(ctx, branch)
	if err != nil {
		return domain.Branch{}, fmt.Errorf("persist branch: %w", err)
	}

	s.logger.WithFields(log.Fields{
		"branch_id": branch.ID,
		"name":      branch.Name,
	}).Info("branch created")

	return branch, nil
}

// Get возвращает филиал по идентификатору.
func (s *Service) Get(ctx context.Context, id string) (domain.Branch, error) {
	return s.branches.Get(ctx, id)
}

// GetAll возвращает все филиалы.
func (s *Service) GetAll(ctx context.Context) ([]domain.Branch, error) {
	return s.branches.List(ctx)
}

// UpdateStatus включает или выключает приём заказов филиалом.
func (s *Service) UpdateStatus(ctx context.Context, id string, active bool) (domain.Branch, error) {
	branch, err := s.branches.Get(ctx, id)
	if err != nil {
		return domain.Branch{}, err
	}
	branch.Active = active
	branch.UpdatedAt = time.Now().UTC()
	branch, err = s.branches.Save(ctx, branch)
	if err != nil {
		return domain.Branch{}, fmt.Errorf("persist branch status: %w", err)
	}

	s.logger.WithFields(log.Fields{
		"branch_id": id,
		"active":    active,
	}).Info("branch status updated")

	return branch, nil
}

// Delete удаляет филиал из справочника.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.branches.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("branch_id", id).Info("branch deleted")
	return nil
}
