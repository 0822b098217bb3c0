package repository

import (
	"context"
	"errors"
	"time"

	"crew-shift-reconciler/internal/models"
	"crew-shift-reconciler/pkg/worktime"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type LeavePeriodRepository interface {
	Create(ctx context.Context, period *models.LeavePeriod) error
	GetActiveOn(ctx context.Context, workerIDs []uint, date time.Time) ([]models.LeavePeriod, error)
	CheckPeriodConflict(ctx context.Context, workerID uint, startDate, endDate time.Time) (bool, error)
}

type GormLeavePeriodRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormLeavePeriodRepository(db *gorm.DB, logger *logrus.Logger) (*GormLeavePeriodRepository, error) {
	if err := db.AutoMigrate(&models.LeavePeriod{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate leave_periods table")
		return nil, err
	}
	return &GormLeavePeriodRepository{db: db, logger: logger}, nil
}

func (r *GormLeavePeriodRepository) Create(ctx context.Context, period *models.LeavePeriod) error {
	period.StartDate = worktime.Day(period.StartDate)
	period.EndDate = worktime.Day(period.EndDate)
	if period.EndDate.Before(period.StartDate) {
		return errors.New("дата окончания раньше даты начала")
	}

	conflict, err := r.CheckPeriodConflict(ctx, period.WorkerID, period.StartDate, period.EndDate)
	if err != nil {
		return err
	}
	if conflict {
		r.logger.WithFields(logrus.Fields{
			"worker_id": period.WorkerID,
			"from":      worktime.FormatDate(period.StartDate),
			"to":        worktime.FormatDate(period.EndDate),
		}).Warn("Leave period overlaps an existing one")
		return errors.New("период пересекается с уже существующим")
	}

	return r.db.WithContext(ctx).Create(period).Error
}

// GetActiveOn - периоды отсутствия указанных работников, покрывающие день
func (r *GormLeavePeriodRepository) GetActiveOn(ctx context.Context, workerIDs []uint, date time.Time) ([]models.LeavePeriod, error) {
	if len(workerIDs) == 0 {
		return nil, nil
	}
	day := worktime.Day(date)

	var periods []models.LeavePeriod
	err := r.db.WithContext(ctx).
		Where("worker_id IN ? AND start_date <= ? AND end_date >= ?", workerIDs, day, day).
		Find(&periods).Error
	if err != nil {
		r.logger.WithError(err).Error("Failed to get active leave periods")
		return nil, err
	}
	return periods, nil
}

func (r *GormLeavePeriodRepository) CheckPeriodConflict(ctx context.Context, workerID uint, startDate, endDate time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.LeavePeriod{}).
		Where("worker_id = ? AND start_date <= ? AND end_date >= ?",
			workerID, worktime.Day(endDate), worktime.Day(startDate)).
		Count(&count).Error
	return count > 0, err
}
