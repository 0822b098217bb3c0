package main

import (
	"fmt"
	"io"

	"crew-shift-reconciler/internal/config"
	"crew-shift-reconciler/internal/logging"
	"crew-shift-reconciler/internal/metrics"
	"crew-shift-reconciler/internal/reconcile"
	"crew-shift-reconciler/internal/repository"
	"crew-shift-reconciler/internal/service"
	"crew-shift-reconciler/pkg/worktime"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// app - собранные зависимости одного запуска процесса
type app struct {
	cfg       *config.Config
	logger    *logrus.Logger
	db        *gorm.DB
	repos     service.Repositories
	runs      repository.RunRepository
	scheduler *service.ReconciliationScheduler
}

func newApp(sink metrics.Sink) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := logging.New(cfg.LogLevel)
	logger.Info("Config initialized")

	db, err := repository.Open(cfg.DatabaseDriver, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, db: db}
	if err := a.initRepositories(); err != nil {
		_ = repository.Close(db)
		return nil, err
	}

	engine := reconcile.NewEngine(reconcile.Config{
		Tolerance:           cfg.Tolerance(),
		DefaultShiftMinutes: cfg.DefaultShiftMinutes,
		Location:            cfg.Location(),
	}, logger)
	svc := service.NewReconciliationService(a.repos, engine, sink, logger)
	a.scheduler = service.NewReconciliationScheduler(svc, a.repos.Schedules, a.runs, service.SchedulerConfig{
		LookbackDays: cfg.LookbackDays,
		Interval:     cfg.Interval,
		Workers:      cfg.Workers,
		Tolerance:    cfg.Tolerance(),
		Location:     cfg.Location(),
	}, sink, logger)

	return a, nil
}

func (a *app) initRepositories() error {
	var err error
	if a.repos.Schedules, err = repository.NewGormScheduleRepository(a.db, a.logger); err != nil {
		return fmt.Errorf("schedule repository: %w", err)
	}
	if a.repos.Shifts, err = repository.NewGormObservedShiftRepository(a.db, a.logger); err != nil {
		return fmt.Errorf("observed shift repository: %w", err)
	}
	if a.repos.Workers, err = repository.NewGormWorkerRepository(a.db, a.logger); err != nil {
		return fmt.Errorf("worker repository: %w", err)
	}
	if a.repos.Leaves, err = repository.NewGormLeavePeriodRepository(a.db, a.logger); err != nil {
		return fmt.Errorf("leave period repository: %w", err)
	}
	if a.repos.Justifications, err = repository.NewGormTeamJustificationRepository(a.db, a.logger); err != nil {
		return fmt.Errorf("team justification repository: %w", err)
	}
	if a.repos.Exceptions, err = repository.NewGormExceptionRepository(a.db, a.logger); err != nil {
		return fmt.Errorf("exception repository: %w", err)
	}
	if a.runs, err = repository.NewGormRunRepository(a.db, a.logger); err != nil {
		return fmt.Errorf("run repository: %w", err)
	}
	return nil
}

func (a *app) Close() {
	if err := repository.Close(a.db); err != nil {
		a.logger.WithError(err).Error("Error closing database")
	}
}

func printResult(w io.Writer, result service.RunResult) {
	fmt.Fprintf(w, "run %s (%s) %s..%s\n", result.RunID, result.Trigger,
		worktime.FormatDate(result.From), worktime.FormatDate(result.To))
	fmt.Fprintf(w, "units processed: %d, succeeded: %d, pending: %d, records created: %d\n",
		result.UnitsProcessed, result.UnitsSucceeded, result.UnitsPending, result.RecordsCreated)
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s [%s]: %s\n", e.Unit, e.Status, e.Message)
	}
}
