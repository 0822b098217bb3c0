package service

import (
	"context"
	"fmt"
	"time"

	"crew-shift-reconciler/internal/metrics"
	"crew-shift-reconciler/internal/models"
	"crew-shift-reconciler/internal/reconcile"
	"crew-shift-reconciler/internal/repository"
	"crew-shift-reconciler/pkg/worktime"

	"github.com/sirupsen/logrus"
)

// Repositories - хранилища, из которых сервис собирает срез дня и куда пишет
// записи-исключения
type Repositories struct {
	Schedules      repository.ScheduleRepository
	Shifts         repository.ObservedShiftRepository
	Workers        repository.WorkerRepository
	Leaves         repository.LeavePeriodRepository
	Justifications repository.TeamJustificationRepository
	Exceptions     repository.ExceptionRepository
}

// UnitReport - итог сверки одной единицы (бригада, день)
type UnitReport struct {
	Unit          reconcile.Unit
	Created       int
	CreatedByKind map[string]int
	Resolutions   []reconcile.SlotResolution
	Errors        []error
}

type ReconciliationService struct {
	repos   Repositories
	engine  *reconcile.Engine
	metrics metrics.Sink
	logger  *logrus.Logger
}

func NewReconciliationService(
	repos Repositories,
	engine *reconcile.Engine,
	sink metrics.Sink,
	logger *logrus.Logger,
) *ReconciliationService {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &ReconciliationService{
		repos:   repos,
		engine:  engine,
		metrics: sink,
		logger:  logger,
	}
}

// Reconcile сверяет план бригады crewID за день date с фактом и записывает
// недостающие записи-исключения. Ошибка возвращается только если не удалось
// прочитать срез дня; ошибки отдельных слотов и записей попадают в отчет.
func (s *ReconciliationService) Reconcile(ctx context.Context, date time.Time, crewID uint) (UnitReport, error) {
	day := worktime.Day(date)
	report := UnitReport{
		Unit:          reconcile.Unit{Date: day, CrewID: crewID},
		CreatedByKind: make(map[string]int),
	}

	snap, err := s.LoadSnapshot(ctx, day)
	if err != nil {
		return report, err
	}

	outcome := s.engine.Evaluate(snap, crewID)
	report.Resolutions = outcome.Resolutions

	for _, slotErr := range outcome.Errors {
		s.logger.WithFields(logrus.Fields{
			"unit": report.Unit.String(),
		}).WithError(slotErr).Warn("Planned slot skipped")
		report.Errors = append(report.Errors, slotErr)
	}

	for _, rec := range outcome.Records {
		created, err := s.repos.Exceptions.CreateIfAbsent(ctx, rec)
		if err != nil {
			report.Errors = append(report.Errors, &reconcile.RecordError{Record: rec, Err: err})
			continue
		}
		if created {
			report.Created++
			report.CreatedByKind[rec.RecordKind()]++
			s.metrics.RecordCreated(rec.RecordKind())
		}
	}

	s.logger.WithFields(logrus.Fields{
		"unit":    report.Unit.String(),
		"slots":   len(outcome.Resolutions),
		"records": len(outcome.Records),
		"created": report.Created,
		"errors":  len(report.Errors),
	}).Info("Unit reconciled")

	return report, nil
}

// LoadSnapshot читает срез дня: слоты всех бригад, все смены и справочники.
// Срез не кэшируется между единицами.
func (s *ReconciliationService) LoadSnapshot(ctx context.Context, date time.Time) (*reconcile.Snapshot, error) {
	day := worktime.Day(date)

	slots, err := s.repos.Schedules.GetPublishedSlotsByDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("load planned slots: %w", err)
	}
	shifts, err := s.repos.Shifts.GetByDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("load observed shifts: %w", err)
	}

	workerIDs := slotWorkerIDs(slots)

	workers, err := s.repos.Workers.GetByIDs(ctx, workerIDs)
	if err != nil {
		return nil, fmt.Errorf("load workers: %w", err)
	}
	leaves, err := s.repos.Leaves.GetActiveOn(ctx, workerIDs, day)
	if err != nil {
		return nil, fmt.Errorf("load leave periods: %w", err)
	}
	justifications, err := s.repos.Justifications.GetByDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("load team justifications: %w", err)
	}

	return reconcile.NewSnapshot(day, slots, shifts).
		WithWorkers(workers).
		WithLeaves(leaves).
		WithJustifications(justifications), nil
}

func slotWorkerIDs(slots []models.PlannedSlot) []uint {
	seen := make(map[uint]bool, len(slots))
	ids := make([]uint, 0, len(slots))
	for _, slot := range slots {
		if !seen[slot.WorkerID] {
			seen[slot.WorkerID] = true
			ids = append(ids, slot.WorkerID)
		}
	}
	return ids
}
