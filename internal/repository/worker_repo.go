package repository

import (
	"context"
	"errors"

	"crew-shift-reconciler/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type WorkerRepository interface {
	Create(ctx context.Context, worker *models.Worker) error
	GetByID(ctx context.Context, id uint) (*models.Worker, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Worker, error)
	UpdateStatus(ctx context.Context, id uint, status string) error
}

type GormWorkerRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormWorkerRepository(db *gorm.DB, logger *logrus.Logger) (*GormWorkerRepository, error) {
	if err := db.AutoMigrate(&models.Worker{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate workers table")
		return nil, err
	}
	return &GormWorkerRepository{db: db, logger: logger}, nil
}

func (r *GormWorkerRepository) Create(ctx context.Context, worker *models.Worker) error {
	if worker.Status == "" {
		worker.Status = models.WorkerStatusActive
	}
	return r.db.WithContext(ctx).Create(worker).Error
}

func (r *GormWorkerRepository) GetByID(ctx context.Context, id uint) (*models.Worker, error) {
	var worker models.Worker
	err := r.db.WithContext(ctx).First(&worker, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &worker, nil
}

// GetByIDs - работники по списку ID; отсутствующие просто не возвращаются
func (r *GormWorkerRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Worker, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var workers []models.Worker
	result := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&workers)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get workers by IDs")
		return nil, result.Error
	}
	return workers, nil
}

func (r *GormWorkerRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	result := r.db.WithContext(ctx).Model(&models.Worker{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("работник не найден")
	}

	r.logger.WithFields(logrus.Fields{
		"worker_id": id,
		"status":    status,
	}).Info("Worker status updated")
	return nil
}
