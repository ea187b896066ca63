package service

import (
	"context"

	"versus-be/internal/domain"
	"versus-be/internal/repository"

	"go.uber.org/zap"
)

type categoryService struct {
	categories repository.CategoryRepository
	logger     *zap.Logger
}

// NewCategoryService creates a new category service.
func NewCategoryService(categories repository.CategoryRepository, logger *zap.Logger) CategoryService {
	return &categoryService{categories: categories, logger: logger}
}

func (s *categoryService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categories.List(ctx)
}
