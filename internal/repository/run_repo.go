package repository

import (
	"context"

	"crew-shift-reconciler/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type RunRepository interface {
	Create(ctx context.Context, run *models.ReconciliationRun) error
	Recent(ctx context.Context, limit int) ([]models.ReconciliationRun, error)
}

type GormRunRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormRunRepository(db *gorm.DB, logger *logrus.Logger) (*GormRunRepository, error) {
	if err := db.AutoMigrate(&models.ReconciliationRun{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate reconciliation_runs table")
		return nil, err
	}
	return &GormRunRepository{db: db, logger: logger}, nil
}

func (r *GormRunRepository) Create(ctx context.Context, run *models.ReconciliationRun) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		r.logger.WithError(err).WithField("run_id", run.RunID).Error("Failed to save reconciliation run")
		return err
	}
	return nil
}

// Recent - последние запуски, новые первыми
func (r *GormRunRepository) Recent(ctx context.Context, limit int) ([]models.ReconciliationRun, error) {
	if limit <= 0 {
		limit = 10
	}
	var runs []models.ReconciliationRun
	err := r.db.WithContext(ctx).
		Order("started_at DESC, id DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}
