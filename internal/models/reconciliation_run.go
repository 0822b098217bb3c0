package models

import (
	"time"

	"gorm.io/datatypes"
)

// Источники запуска сверки
const (
	TriggerPeriodic = "periodic"
	TriggerWindow   = "window"
	TriggerUnit     = "unit"
	TriggerBackfill = "backfill"
)

// ReconciliationRun - журнал запусков планировщика сверки
type ReconciliationRun struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	RunID          string         `gorm:"type:varchar(36);not null;uniqueIndex" json:"run_id"`
	Trigger        string         `gorm:"type:varchar(20);not null;index" json:"trigger"`
	Forced         bool           `gorm:"not null;default:false" json:"forced"`
	WindowFrom     time.Time      `gorm:"type:date;not null" json:"window_from"`
	WindowTo       time.Time      `gorm:"type:date;not null" json:"window_to"`
	UnitsProcessed int            `gorm:"not null;default:0" json:"units_processed"`
	UnitsSucceeded int            `gorm:"not null;default:0" json:"units_succeeded"`
	UnitsPending   int            `gorm:"not null;default:0" json:"units_pending"`
	RecordsCreated int            `gorm:"not null;default:0" json:"records_created"`
	Errors         datatypes.JSON `json:"errors"`
	StartedAt      time.Time      `gorm:"not null" json:"started_at"`
	FinishedAt     time.Time      `gorm:"not null" json:"finished_at"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (ReconciliationRun) TableName() string {
	return "reconciliation_runs"
}

// Duration возвращает длительность запуска
func (r *ReconciliationRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
