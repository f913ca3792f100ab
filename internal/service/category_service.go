package service

import (
	"context"
	"strings"

	"github.com/smartcheck/gatepass/internal/domain"
	"github.com/smartcheck/gatepass/internal/repository"
)

// CategoryService manages the visitor category reference data.
type CategoryService struct {
	categories repository.CategoryRepository
	authz      Authorizer
}

func NewCategoryService(categories repository.CategoryRepository, authz Authorizer) *CategoryService {
	return &CategoryService{categories: categories, authz: authz}
}

func (s *CategoryService) Create(ctx context.Context, actor Principal, name, description string) (*domain.Category, error) {
	if err := s.authz.IsPermitted(actor, ActionManageRefs); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ConfigurationErr("category name is required")
	}
	return s.categories.Create(ctx, name, strings.TrimSpace(description))
}

func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	return s.categories.List(ctx)
}

func (s *CategoryService) Deactivate(ctx context.Context, actor Principal, id int64) error {
	if err := s.authz.IsPermitted(actor, ActionManageRefs); err != nil {
		return err
	}
	ok, err := s.categories.Deactivate(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NotFound("category not found")
	}
	return nil
}
