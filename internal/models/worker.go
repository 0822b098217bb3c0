package models

import "time"

// Административные статусы работника
const (
	WorkerStatusActive     = "active"
	WorkerStatusOnLeave    = "on-leave"
	WorkerStatusVacation   = "vacation"
	WorkerStatusSickLeave  = "sick-leave"
	WorkerStatusDayOff     = "day-off"
	WorkerStatusSuspended  = "suspended"
	WorkerStatusTerminated = "terminated"
	WorkerStatusRetired    = "retired"
	WorkerStatusTraining   = "training"
)

var leaveLikeStatuses = map[string]bool{
	WorkerStatusOnLeave:   true,
	WorkerStatusVacation:  true,
	WorkerStatusSickLeave: true,
	WorkerStatusDayOff:    true,
	WorkerStatusSuspended: true,
}

// IsLeaveLike - статус подавляет генерацию прогулов
func IsLeaveLike(status string) bool {
	return leaveLikeStatuses[status]
}

type Worker struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Status    string    `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Worker) TableName() string {
	return "workers"
}

// LeavePeriod - период отпуска/больничного/отгула работника
type LeavePeriod struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	WorkerID  uint      `gorm:"not null;index" json:"worker_id"`
	StartDate time.Time `gorm:"type:date;not null" json:"start_date"`
	EndDate   time.Time `gorm:"type:date;not null" json:"end_date"`
	Type      string    `gorm:"type:varchar(20);not null" json:"type"` // vacation, sick-leave, day-off
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (LeavePeriod) TableName() string {
	return "leave_periods"
}

// Covers проверяет, попадает ли день в период
func (p *LeavePeriod) Covers(day time.Time) bool {
	return !day.Before(p.StartDate) && !day.After(p.EndDate)
}
