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

// ScheduleRepository - хранилище плановых графиков. Сверка только читает
// опубликованные слоты.
type ScheduleRepository interface {
	Create(ctx context.Context, schedule *models.Schedule) error
	Publish(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*models.Schedule, error)
	GetPublishedSlotsByDate(ctx context.Context, date time.Time) ([]models.PlannedSlot, error)
	GetPublishedSlotsInRange(ctx context.Context, from, to time.Time, crewIDs []uint) ([]models.PlannedSlot, error)
}

type GormScheduleRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormScheduleRepository(db *gorm.DB, logger *logrus.Logger) (*GormScheduleRepository, error) {
	// Автомиграция
	if err := db.AutoMigrate(&models.Schedule{}, &models.PlannedSlot{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate schedules tables")
		return nil, err
	}

	logger.Debug("Schedule repository initialized")

	return &GormScheduleRepository{
		db:     db,
		logger: logger,
	}, nil
}

func (r *GormScheduleRepository) Create(ctx context.Context, schedule *models.Schedule) error {
	r.logger.WithFields(logrus.Fields{
		"crew_id": schedule.CrewID,
		"from":    worktime.FormatDate(schedule.PeriodStart),
		"to":      worktime.FormatDate(schedule.PeriodEnd),
		"slots":   len(schedule.Slots),
	}).Debug("Creating schedule")

	schedule.PeriodStart = worktime.Day(schedule.PeriodStart)
	schedule.PeriodEnd = worktime.Day(schedule.PeriodEnd)
	for i := range schedule.Slots {
		slot := &schedule.Slots[i]
		slot.Date = worktime.Day(slot.Date)
		if slot.CrewID == 0 {
			slot.CrewID = schedule.CrewID
		}
		if !slot.IsValid() {
			r.logger.WithFields(logrus.Fields{
				"crew_id":   slot.CrewID,
				"worker_id": slot.WorkerID,
				"state":     slot.ExpectedState,
			}).Warn("Invalid planned slot data")
			return errors.New("некорректные данные планового слота")
		}
	}

	if err := r.db.WithContext(ctx).Create(schedule).Error; err != nil {
		r.logger.WithError(err).Error("Failed to create schedule")
		return err
	}
	return nil
}

func (r *GormScheduleRepository) Publish(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&models.Schedule{}).
		Where("id = ?", id).
		Update("status", models.ScheduleStatusPublished)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to publish schedule")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("график не найден")
	}

	r.logger.WithField("id", id).Info("Schedule published")
	return nil
}

func (r *GormScheduleRepository) GetByID(ctx context.Context, id uint) (*models.Schedule, error) {
	var schedule models.Schedule
	err := r.db.WithContext(ctx).Preload("Slots").First(&schedule, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// GetPublishedSlotsByDate - слоты всех бригад за день
func (r *GormScheduleRepository) GetPublishedSlotsByDate(ctx context.Context, date time.Time) ([]models.PlannedSlot, error) {
	day := worktime.Day(date)
	return r.GetPublishedSlotsInRange(ctx, day, day, nil)
}

// GetPublishedSlotsInRange - слоты в диапазоне дат, опционально только указанных бригад
func (r *GormScheduleRepository) GetPublishedSlotsInRange(ctx context.Context, from, to time.Time, crewIDs []uint) ([]models.PlannedSlot, error) {
	var slots []models.PlannedSlot

	query := r.db.WithContext(ctx).
		Joins("JOIN schedules ON schedules.id = planned_slots.schedule_id AND schedules.status = ?", models.ScheduleStatusPublished).
		Where("planned_slots.date BETWEEN ? AND ?", worktime.Day(from), worktime.Day(to))
	if len(crewIDs) > 0 {
		query = query.Where("planned_slots.crew_id IN ?", crewIDs)
	}

	result := query.
		Order("planned_slots.date ASC, planned_slots.crew_id ASC, planned_slots.id ASC").
		Find(&slots)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get published slots")
		return nil, result.Error
	}

	r.logger.WithFields(logrus.Fields{
		"from":  worktime.FormatDate(from),
		"to":    worktime.FormatDate(to),
		"crews": crewIDs,
		"count": len(slots),
	}).Debug("Retrieved published slots")

	return slots, nil
}
