package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ExceptionRecord - запись-исключение, которую порождает сверка.
// Набор реализаций закрыт: Absence, CrewDivergence, Overtime, UnjustifiedCrewCase.
type ExceptionRecord interface {
	// RecordKind - тип записи для логов и метрик
	RecordKind() string
	// NaturalKey - составной ключ уникальности
	NaturalKey() string
	exceptionRecord()
}

const (
	AbsenceReasonNoShow = "no-show"
	DivergenceKindCrew  = "crew-mismatch"
)

// OvertimeKind - категория переработки
type OvertimeKind string

const (
	OvertimeRestDayWorked       OvertimeKind = "rest-day-worked"
	OvertimeLatenessCompensated OvertimeKind = "lateness-compensated"
	OvertimeUnscheduledExtra    OvertimeKind = "unscheduled-extra"
)

// OvertimeKinds - все категории переработки
var OvertimeKinds = []OvertimeKind{
	OvertimeRestDayWorked,
	OvertimeLatenessCompensated,
	OvertimeUnscheduledExtra,
}

func (k OvertimeKind) Valid() bool {
	switch k {
	case OvertimeRestDayWorked, OvertimeLatenessCompensated, OvertimeUnscheduledExtra:
		return true
	}
	return false
}

// Absence - работник не вышел по плану
type Absence struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	Date          time.Time `gorm:"type:date;not null;uniqueIndex:uq_absences_key" json:"date"`
	CrewID        uint      `gorm:"not null;uniqueIndex:uq_absences_key" json:"crew_id"`
	WorkerID      uint      `gorm:"not null;uniqueIndex:uq_absences_key" json:"worker_id"`
	Reason        string    `gorm:"type:varchar(20);not null;uniqueIndex:uq_absences_key" json:"reason"`
	PlannedSlotID uint      `gorm:"not null" json:"planned_slot_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Absence) TableName() string { return "absences" }

func (a *Absence) RecordKind() string { return "absence" }

func (a *Absence) NaturalKey() string {
	return fmt.Sprintf("%s/%d/%d/%s", a.Date.Format("2006-01-02"), a.CrewID, a.WorkerID, a.Reason)
}

func (*Absence) exceptionRecord() {}

// CrewDivergence - работник отметился в другой бригаде
type CrewDivergence struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	Date           time.Time `gorm:"type:date;not null;uniqueIndex:uq_crew_divergences_key" json:"date"`
	WorkerID       uint      `gorm:"not null;uniqueIndex:uq_crew_divergences_key" json:"worker_id"`
	ExpectedCrewID uint      `gorm:"not null;uniqueIndex:uq_crew_divergences_key" json:"expected_crew_id"`
	ActualCrewID   uint      `gorm:"not null;uniqueIndex:uq_crew_divergences_key" json:"actual_crew_id"`
	Kind           string    `gorm:"type:varchar(20);not null" json:"kind"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (CrewDivergence) TableName() string { return "crew_divergences" }

func (d *CrewDivergence) RecordKind() string { return "crew-divergence" }

func (d *CrewDivergence) NaturalKey() string {
	return fmt.Sprintf("%s/%d/%d/%d", d.Date.Format("2006-01-02"), d.WorkerID, d.ExpectedCrewID, d.ActualCrewID)
}

func (*CrewDivergence) exceptionRecord() {}

// Overtime - отработанное время вне плана
type Overtime struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	Date          time.Time       `gorm:"type:date;not null;index" json:"date"`
	WorkerID      uint            `gorm:"not null;index" json:"worker_id"`
	AttendanceID  uint            `gorm:"not null;uniqueIndex:uq_overtimes_key" json:"attendance_id"`
	Kind          OvertimeKind    `gorm:"type:varchar(30);not null;uniqueIndex:uq_overtimes_key" json:"kind"`
	PlannedSlotID *uint           `json:"planned_slot_id"`
	PlannedHours  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"planned_hours"`
	WorkedHours   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"worked_hours"`
	DeltaHours    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"delta_hours"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (Overtime) TableName() string { return "overtimes" }

func (o *Overtime) RecordKind() string { return "overtime:" + string(o.Kind) }

func (o *Overtime) NaturalKey() string {
	return fmt.Sprintf("%d/%s", o.AttendanceID, o.Kind)
}

func (*Overtime) exceptionRecord() {}

// UnjustifiedCrewCase - бригада с плановой работой не открыла ни одной смены
type UnjustifiedCrewCase struct {
	ID                   uint      `gorm:"primarykey" json:"id"`
	Date                 time.Time `gorm:"type:date;not null;uniqueIndex:uq_unjustified_crew_cases_key" json:"date"`
	CrewID               uint      `gorm:"not null;uniqueIndex:uq_unjustified_crew_cases_key" json:"crew_id"`
	PlannedWorkSlotCount int       `gorm:"not null" json:"planned_work_slot_count"`
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (UnjustifiedCrewCase) TableName() string { return "unjustified_crew_cases" }

func (c *UnjustifiedCrewCase) RecordKind() string { return "unjustified-crew-case" }

func (c *UnjustifiedCrewCase) NaturalKey() string {
	return fmt.Sprintf("%s/%d", c.Date.Format("2006-01-02"), c.CrewID)
}

func (*UnjustifiedCrewCase) exceptionRecord() {}
