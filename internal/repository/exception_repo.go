package repository

import (
	"context"
	"fmt"
	"time"

	"crew-shift-reconciler/internal/models"
	"crew-shift-reconciler/pkg/worktime"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ExceptionRepository - хранилище записей-исключений сверки
type ExceptionRepository interface {
	// CreateIfAbsent вставляет запись, если записи с тем же естественным
	// ключом еще нет. Возвращает true, если строка действительно создана.
	CreateIfAbsent(ctx context.Context, rec models.ExceptionRecord) (bool, error)
	CountByKind(ctx context.Context, from, to time.Time) (map[string]int64, error)
}

type GormExceptionRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormExceptionRepository(db *gorm.DB, logger *logrus.Logger) (*GormExceptionRepository, error) {
	err := db.AutoMigrate(
		&models.Absence{},
		&models.CrewDivergence{},
		&models.Overtime{},
		&models.UnjustifiedCrewCase{},
	)
	if err != nil {
		logger.WithError(err).Error("Failed to auto-migrate exception tables")
		return nil, err
	}

	logger.Debug("Exception repository initialized")

	return &GormExceptionRepository{
		db:     db,
		logger: logger,
	}, nil
}

func (r *GormExceptionRepository) CreateIfAbsent(ctx context.Context, rec models.ExceptionRecord) (bool, error) {
	switch v := rec.(type) {
	case *models.Absence:
		v.Date = worktime.Day(v.Date)
	case *models.CrewDivergence:
		v.Date = worktime.Day(v.Date)
	case *models.Overtime:
		v.Date = worktime.Day(v.Date)
	case *models.UnjustifiedCrewCase:
		v.Date = worktime.Day(v.Date)
	default:
		return false, fmt.Errorf("%w: %T", ErrUnsupportedRecord, rec)
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rec)
	if IsUniqueViolation(result.Error) {
		// гонка с параллельной вставкой: запись уже есть
		return false, nil
	}
	if result.Error != nil {
		r.logger.WithFields(logrus.Fields{
			"kind": rec.RecordKind(),
			"key":  rec.NaturalKey(),
		}).WithError(result.Error).Error("Failed to write exception record")
		return false, result.Error
	}

	created := result.RowsAffected > 0
	r.logger.WithFields(logrus.Fields{
		"kind":    rec.RecordKind(),
		"key":     rec.NaturalKey(),
		"created": created,
	}).Debug("Exception record written")

	return created, nil
}

// CountByKind - количество записей каждого вида за период
func (r *GormExceptionRepository) CountByKind(ctx context.Context, from, to time.Time) (map[string]int64, error) {
	from, to = worktime.Day(from), worktime.Day(to)
	counts := make(map[string]int64)

	tables := []struct {
		kind  string
		model interface{}
	}{
		{"absence", &models.Absence{}},
		{"crew-divergence", &models.CrewDivergence{}},
		{"unjustified-crew-case", &models.UnjustifiedCrewCase{}},
	}
	for _, t := range tables {
		var count int64
		err := r.db.WithContext(ctx).Model(t.model).
			Where("date BETWEEN ? AND ?", from, to).
			Count(&count).Error
		if err != nil {
			return nil, err
		}
		counts[t.kind] = count
	}

	var rows []struct {
		Kind  models.OvertimeKind
		Count int64
	}
	err := r.db.WithContext(ctx).Model(&models.Overtime{}).
		Select("kind, COUNT(*) AS count").
		Where("date BETWEEN ? AND ?", from, to).
		Group("kind").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, kind := range models.OvertimeKinds {
		counts["overtime:"+string(kind)] = 0
	}
	for _, row := range rows {
		counts["overtime:"+string(row.Kind)] = row.Count
	}

	return counts, nil
}
