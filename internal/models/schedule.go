package models

import (
	"time"

	"gorm.io/datatypes"
)

// Статусы опубликования графика
const (
	ScheduleStatusDraft     = "draft"
	ScheduleStatusPublished = "published"
)

// Schedule - опубликованный график бригады, владелец плановых слотов
type Schedule struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CrewID      uint      `gorm:"not null;index" json:"crew_id"`
	Status      string    `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	PeriodStart time.Time `gorm:"type:date;not null" json:"period_start"`
	PeriodEnd   time.Time `gorm:"type:date;not null" json:"period_end"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Slots []PlannedSlot `gorm:"foreignKey:ScheduleID" json:"slots"`
}

func (Schedule) TableName() string {
	return "schedules"
}

// ExpectedState - плановое состояние работника на день
type ExpectedState string

const (
	ExpectedWork      ExpectedState = "WORK"
	ExpectedRest      ExpectedState = "REST"
	ExpectedException ExpectedState = "EXCEPTION"
	ExpectedAbsent    ExpectedState = "ABSENT"
)

// Valid проверяет, что состояние входит в закрытый набор
func (s ExpectedState) Valid() bool {
	switch s {
	case ExpectedWork, ExpectedRest, ExpectedException, ExpectedAbsent:
		return true
	}
	return false
}

// PlannedSlot - плановая единица (бригада, работник, день). После публикации не меняется.
type PlannedSlot struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	ScheduleID    uint            `gorm:"not null;index" json:"schedule_id"`
	CrewID        uint            `gorm:"not null;index:idx_slot_crew_date" json:"crew_id"`
	WorkerID      uint            `gorm:"not null;index" json:"worker_id"`
	Date          time.Time       `gorm:"type:date;not null;index:idx_slot_crew_date" json:"date"`
	ExpectedState ExpectedState   `gorm:"type:varchar(20);not null" json:"expected_state"`
	ExpectedStart *datatypes.Time `json:"expected_start"`
	ExpectedEnd   *datatypes.Time `json:"expected_end"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`

	Schedule Schedule `gorm:"foreignKey:ScheduleID" json:"-"`
}

func (PlannedSlot) TableName() string {
	return "planned_slots"
}

// StartOffset возвращает плановое начало как смещение от полуночи
func (s *PlannedSlot) StartOffset() (time.Duration, bool) {
	if s.ExpectedStart == nil {
		return 0, false
	}
	return time.Duration(*s.ExpectedStart), true
}

// EndOffset возвращает плановое окончание как смещение от полуночи
func (s *PlannedSlot) EndOffset() *time.Duration {
	if s.ExpectedEnd == nil {
		return nil
	}
	d := time.Duration(*s.ExpectedEnd)
	return &d
}

// IsValid проверяет валидность данных
func (s *PlannedSlot) IsValid() bool {
	if s.CrewID == 0 || s.WorkerID == 0 {
		return false
	}
	if s.Date.IsZero() {
		return false
	}
	return s.ExpectedState.Valid()
}
