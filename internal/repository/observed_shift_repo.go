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

// ObservedShiftRepository - смены и отметки из мобильного приложения
type ObservedShiftRepository interface {
	Create(ctx context.Context, shift *models.ObservedShift) error
	GetByDate(ctx context.Context, date time.Time) ([]models.ObservedShift, error)
	CloseAttendance(ctx context.Context, attendanceID uint, closedAt time.Time) error
}

type GormObservedShiftRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormObservedShiftRepository(db *gorm.DB, logger *logrus.Logger) (*GormObservedShiftRepository, error) {
	if err := db.AutoMigrate(&models.ObservedShift{}, &models.ObservedAttendance{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate observed shift tables")
		return nil, err
	}

	logger.Debug("Observed shift repository initialized")

	return &GormObservedShiftRepository{
		db:     db,
		logger: logger,
	}, nil
}

func (r *GormObservedShiftRepository) Create(ctx context.Context, shift *models.ObservedShift) error {
	if shift.CrewID == 0 || shift.OpenedAt.IsZero() {
		r.logger.WithField("crew_id", shift.CrewID).Warn("Invalid observed shift data")
		return errors.New("некорректные данные смены")
	}
	if shift.Date.IsZero() {
		shift.Date = shift.OpenedAt
	}
	shift.Date = worktime.Day(shift.Date)

	if err := r.db.WithContext(ctx).Create(shift).Error; err != nil {
		r.logger.WithError(err).Error("Failed to create observed shift")
		return err
	}

	r.logger.WithFields(logrus.Fields{
		"id":          shift.ID,
		"crew_id":     shift.CrewID,
		"date":        worktime.FormatDate(shift.Date),
		"attendances": len(shift.Attendances),
	}).Debug("Observed shift created")
	return nil
}

// GetByDate - смены всех бригад за день вместе с отметками
func (r *GormObservedShiftRepository) GetByDate(ctx context.Context, date time.Time) ([]models.ObservedShift, error) {
	var shifts []models.ObservedShift
	result := r.db.WithContext(ctx).
		Preload("Attendances", func(db *gorm.DB) *gorm.DB {
			return db.Order("opened_at ASC, id ASC")
		}).
		Where("date = ?", worktime.Day(date)).
		Order("id ASC").
		Find(&shifts)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get observed shifts by date")
		return nil, result.Error
	}

	r.logger.WithFields(logrus.Fields{
		"date":  worktime.FormatDate(date),
		"count": len(shifts),
	}).Debug("Retrieved observed shifts")

	return shifts, nil
}

func (r *GormObservedShiftRepository) CloseAttendance(ctx context.Context, attendanceID uint, closedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.ObservedAttendance{}).
		Where("id = ? AND closed_at IS NULL", attendanceID).
		Update("closed_at", closedAt)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to close attendance")
		return result.Error
	}
	if result.RowsAffected == 0 {
		r.logger.WithField("attendance_id", attendanceID).Warn("No open attendance found to close")
		return errors.New("нет открытой отметки")
	}
	return nil
}
