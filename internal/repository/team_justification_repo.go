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

type TeamJustificationRepository interface {
	Create(ctx context.Context, justification *models.TeamJustification) error
	Approve(ctx context.Context, id uint) error
	GetByDate(ctx context.Context, date time.Time) ([]models.TeamJustification, error)
}

type GormTeamJustificationRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormTeamJustificationRepository(db *gorm.DB, logger *logrus.Logger) (*GormTeamJustificationRepository, error) {
	if err := db.AutoMigrate(&models.TeamJustification{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate team_justifications table")
		return nil, err
	}
	return &GormTeamJustificationRepository{db: db, logger: logger}, nil
}

func (r *GormTeamJustificationRepository) Create(ctx context.Context, justification *models.TeamJustification) error {
	justification.Date = worktime.Day(justification.Date)
	if justification.Status == "" {
		justification.Status = models.JustificationPending
	}
	return r.db.WithContext(ctx).Create(justification).Error
}

func (r *GormTeamJustificationRepository) Approve(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&models.TeamJustification{}).
		Where("id = ?", id).
		Update("status", models.JustificationApproved)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("обоснование не найдено")
	}
	return nil
}

// GetByDate - одобренные обоснования всех бригад за день
func (r *GormTeamJustificationRepository) GetByDate(ctx context.Context, date time.Time) ([]models.TeamJustification, error) {
	var justifications []models.TeamJustification
	err := r.db.WithContext(ctx).
		Where("date = ? AND status = ?", worktime.Day(date), models.JustificationApproved).
		Order("id ASC").
		Find(&justifications).Error
	if err != nil {
		r.logger.WithError(err).Error("Failed to get team justifications")
		return nil, err
	}
	return justifications, nil
}
