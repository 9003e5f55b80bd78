package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-country-currency/internal/domain"
)

// CreateRefreshRun inserts run, assigning a UUID when ID is empty.
func CreateRefreshRun(ctx context.Context, db *gorm.DB, run *domain.RefreshRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	return db.WithContext(ctx).Create(run).Error
}

// GetRefreshRun fetches a run by ID or returns ErrNotFound.
func GetRefreshRun(ctx context.Context, db *gorm.DB, id string) (*domain.RefreshRun, error) {
	var run domain.RefreshRun
	if err := db.WithContext(ctx).Where("id = ?", id).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}
