package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"crew-shift-reconciler/internal/metrics"
	"crew-shift-reconciler/internal/models"
	"crew-shift-reconciler/internal/reconcile"
	"crew-shift-reconciler/internal/repository"
	"crew-shift-reconciler/pkg/worktime"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

// UnitStatus - состояние единицы сверки после запуска
type UnitStatus string

const (
	UnitPending              UnitStatus = "PENDING"
	UnitReconciled           UnitStatus = "RECONCILED"
	UnitReconciledWithErrors UnitStatus = "RECONCILED_WITH_ERRORS"
	UnitFailed               UnitStatus = "FAILED"
)

// UnitResult - итог одной единицы в рамках запуска
type UnitResult struct {
	Unit    reconcile.Unit
	Status  UnitStatus
	Created int
	Errors  []error
}

// UnitError - ошибка единицы в том виде, в каком она попадает в журнал запусков
type UnitError struct {
	Unit    string     `json:"unit"`
	Status  UnitStatus `json:"status"`
	Message string     `json:"message"`
}

// RunResult - сводка запуска планировщика
type RunResult struct {
	RunID          string
	Trigger        string
	Forced         bool
	From           time.Time
	To             time.Time
	UnitsProcessed int
	UnitsSucceeded int
	UnitsPending   int
	RecordsCreated int
	Errors         []UnitError
	Units          []UnitResult
	StartedAt      time.Time
	FinishedAt     time.Time
}

// BackfillRequest - принудительная пересверка диапазона дат без проверки готовности
type BackfillRequest struct {
	From    time.Time `validate:"required"`
	To      time.Time `validate:"required"`
	CrewIDs []uint    `validate:"omitempty,dive,gt=0"`
}

type SchedulerConfig struct {
	LookbackDays int
	Interval     time.Duration
	Workers      int
	Tolerance    time.Duration
	Location     *time.Location
}

// ReconciliationScheduler решает, какие единицы готовы к сверке, и запускает их
// параллельно ограниченным пулом
type ReconciliationScheduler struct {
	service  *ReconciliationService
	planned  repository.ScheduleRepository
	runs     repository.RunRepository
	cfg      SchedulerConfig
	metrics  metrics.Sink
	validate *validator.Validate
	now      func() time.Time
	logger   *logrus.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewReconciliationScheduler(
	service *ReconciliationService,
	planned repository.ScheduleRepository,
	runs repository.RunRepository,
	cfg SchedulerConfig,
	sink metrics.Sink,
	logger *logrus.Logger,
) *ReconciliationScheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &ReconciliationScheduler{
		service:  service,
		planned:  planned,
		runs:     runs,
		cfg:      cfg,
		metrics:  sink,
		validate: validator.New(),
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock подменяет источник текущего времени
func (s *ReconciliationScheduler) WithClock(now func() time.Time) *ReconciliationScheduler {
	s.now = now
	return s
}

// RunWindow сверяет все готовые единицы с опубликованным планом в
// [asOf - daysBack, asOf]
func (s *ReconciliationScheduler) RunWindow(ctx context.Context, daysBack int, asOf time.Time) (RunResult, error) {
	return s.runWindow(ctx, models.TriggerWindow, daysBack, asOf)
}

func (s *ReconciliationScheduler) runWindow(ctx context.Context, trigger string, daysBack int, asOf time.Time) (RunResult, error) {
	if daysBack <= 0 {
		return RunResult{}, fmt.Errorf("%w: daysBack=%d", reconcile.ErrInvalidWindow, daysBack)
	}
	to := worktime.DayIn(asOf, s.cfg.Location)
	from := to.AddDate(0, 0, -daysBack)
	return s.run(ctx, trigger, false, from, to, nil, asOf)
}

// RunUnit сверяет одну бригаду за один день, если единица уже готова
func (s *ReconciliationScheduler) RunUnit(ctx context.Context, date time.Time, crewID uint, asOf time.Time) (RunResult, error) {
	if crewID == 0 {
		return RunResult{}, fmt.Errorf("%w: crew id is required", reconcile.ErrInvalidRange)
	}
	day := worktime.Day(date)
	return s.run(ctx, models.TriggerUnit, false, day, day, []uint{crewID}, asOf)
}

// Backfill пересверяет диапазон дат, игнорируя проверку готовности
func (s *ReconciliationScheduler) Backfill(ctx context.Context, req BackfillRequest) (RunResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return RunResult{}, fmt.Errorf("%w: %v", reconcile.ErrInvalidRange, err)
	}
	from, to := worktime.Day(req.From), worktime.Day(req.To)
	if to.Before(from) {
		return RunResult{}, fmt.Errorf("%w: %s..%s", reconcile.ErrInvalidRange, worktime.FormatDate(from), worktime.FormatDate(to))
	}
	return s.run(ctx, models.TriggerBackfill, true, from, to, req.CrewIDs, s.now())
}

func (s *ReconciliationScheduler) run(
	ctx context.Context,
	trigger string,
	forced bool,
	from, to time.Time,
	crewIDs []uint,
	asOf time.Time,
) (RunResult, error) {
	result := RunResult{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		Forced:    forced,
		From:      from,
		To:        to,
		StartedAt: s.now(),
	}
	log := s.logger.WithFields(logrus.Fields{
		"run_id":  result.RunID,
		"trigger": trigger,
		"from":    worktime.FormatDate(from),
		"to":      worktime.FormatDate(to),
		"forced":  forced,
	})

	slots, err := s.planned.GetPublishedSlotsInRange(ctx, from, to, crewIDs)
	if err != nil {
		log.WithError(err).Error("Failed to enumerate reconciliation units")
		return result, fmt.Errorf("enumerate units: %w", err)
	}
	plans := reconcile.GroupUnits(slots)
	log.WithField("units", len(plans)).Info("Reconciliation run started")

	units := make([]UnitResult, len(plans))
	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)

	for i, plan := range plans {
		units[i] = UnitResult{Unit: plan.Unit, Status: UnitPending}
		if ctx.Err() != nil {
			continue
		}
		if !forced && !reconcile.IsReady(plan, asOf, s.cfg.Tolerance, s.cfg.Location) {
			log.WithFields(logrus.Fields{
				"unit":     plan.String(),
				"ready_at": reconcile.ReadyAt(plan, s.cfg.Tolerance, s.cfg.Location).Format(time.RFC3339),
			}).Debug("Unit not ready yet")
			continue
		}
		g.Go(func() error {
			// отмена проверяется между единицами
			if ctx.Err() != nil {
				return nil
			}
			units[i] = s.runUnit(ctx, plan.Unit)
			return nil
		})
	}
	_ = g.Wait()

	result.Units = units
	for _, u := range units {
		s.metrics.RecordUnit(string(u.Status))
		switch u.Status {
		case UnitPending:
			result.UnitsPending++
			continue
		case UnitReconciled:
			result.UnitsSucceeded++
		}
		result.UnitsProcessed++
		result.RecordsCreated += u.Created
		for _, e := range u.Errors {
			result.Errors = append(result.Errors, UnitError{
				Unit:    u.Unit.String(),
				Status:  u.Status,
				Message: e.Error(),
			})
		}
	}
	result.FinishedAt = s.now()

	s.metrics.RecordRun(trigger, result.FinishedAt.Sub(result.StartedAt))
	s.saveRun(context.WithoutCancel(ctx), result)

	log.WithFields(logrus.Fields{
		"processed": result.UnitsProcessed,
		"succeeded": result.UnitsSucceeded,
		"pending":   result.UnitsPending,
		"created":   result.RecordsCreated,
		"errors":    len(result.Errors),
	}).Info("Reconciliation run finished")

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (s *ReconciliationScheduler) runUnit(ctx context.Context, unit reconcile.Unit) UnitResult {
	report, err := s.service.Reconcile(ctx, unit.Date, unit.CrewID)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"unit": unit.String(),
		}).WithError(err).Error("Unit reconciliation failed")
		return UnitResult{Unit: unit, Status: UnitFailed, Errors: []error{err}}
	}

	status := UnitReconciled
	if len(report.Errors) > 0 {
		status = UnitReconciledWithErrors
	}
	return UnitResult{
		Unit:    unit,
		Status:  status,
		Created: report.Created,
		Errors:  report.Errors,
	}
}

func (s *ReconciliationScheduler) saveRun(ctx context.Context, result RunResult) {
	if s.runs == nil {
		return
	}
	errs := result.Errors
	if errs == nil {
		errs = []UnitError{}
	}
	payload, err := json.Marshal(errs)
	if err != nil {
		s.logger.WithError(err).Error("Failed to encode run errors")
		payload = []byte("[]")
	}

	run := &models.ReconciliationRun{
		RunID:          result.RunID,
		Trigger:        result.Trigger,
		Forced:         result.Forced,
		WindowFrom:     result.From,
		WindowTo:       result.To,
		UnitsProcessed: result.UnitsProcessed,
		UnitsSucceeded: result.UnitsSucceeded,
		UnitsPending:   result.UnitsPending,
		RecordsCreated: result.RecordsCreated,
		Errors:         datatypes.JSON(payload),
		StartedAt:      result.StartedAt,
		FinishedAt:     result.FinishedAt,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		s.logger.WithError(err).WithField("run_id", result.RunID).Error("Failed to record reconciliation run")
	}
}

// Start запускает периодическую сверку окна. Первый запуск выполняется сразу.
func (s *ReconciliationScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		return
	}
	s.ticker = time.NewTicker(s.cfg.Interval)
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go s.loop(ctx, s.ticker, s.stop)

	s.logger.WithFields(logrus.Fields{
		"interval": s.cfg.Interval.String(),
		"lookback": s.cfg.LookbackDays,
		"workers":  s.cfg.Workers,
	}).Info("Reconciliation scheduler started")
}

// Stop останавливает периодическую сверку и ждет завершения текущего запуска
func (s *ReconciliationScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil

	s.logger.Info("Reconciliation scheduler stopped")
}

func (s *ReconciliationScheduler) loop(ctx context.Context, ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	s.tick(ctx)
	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *ReconciliationScheduler) tick(ctx context.Context) {
	_, err := s.runWindow(ctx, models.TriggerPeriodic, s.cfg.LookbackDays, s.now())
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	if reconcile.IsConfigError(err) {
		s.logger.WithError(err).Error("Periodic reconciliation misconfigured")
		return
	}
	s.logger.WithError(err).Warn("Periodic reconciliation failed, will retry on next tick")
}
