package repository

import (
	"context"

	"github.com/talkincode/speedlog/internal/domain"
	"github.com/talkincode/speedlog/pkg/errs"
	"gorm.io/gorm"
)

// StatusRepository reads the manual reporting flag
type StatusRepository interface {
	List(ctx context.Context) ([]domain.Status, error)
}

// GormStatusRepository is the GORM implementation of StatusRepository
type GormStatusRepository struct {
	db *gorm.DB
}

func NewGormStatusRepository(db *gorm.DB) *GormStatusRepository {
	return &GormStatusRepository{db: db}
}

func (r *GormStatusRepository) List(ctx context.Context) ([]domain.Status, error) {
	var rows []domain.Status
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(errs.KindDatabase, "list status", err)
	}
	return rows, nil
}
