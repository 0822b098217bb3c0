package models

import (
	"time"
)

// ObservedShift - смена, открытая бригадой в мобильном приложении
type ObservedShift struct {
	ID        uint       `gorm:"primarykey" json:"id"`
	CrewID    uint       `gorm:"not null;index:idx_shift_crew_date" json:"crew_id"`
	Date      time.Time  `gorm:"type:date;not null;index:idx_shift_crew_date" json:"date"`
	OpenedAt  time.Time  `gorm:"not null" json:"opened_at"`
	ClosedAt  *time.Time `json:"closed_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`

	Attendances []ObservedAttendance `gorm:"foreignKey:ShiftID" json:"attendances"`
}

func (ObservedShift) TableName() string {
	return "observed_shifts"
}

// ObservedAttendance - отметка работника в открытой смене
type ObservedAttendance struct {
	ID        uint       `gorm:"primarykey" json:"id"`
	ShiftID   uint       `gorm:"not null;index" json:"shift_id"`
	WorkerID  uint       `gorm:"not null;index" json:"worker_id"`
	OpenedAt  time.Time  `gorm:"not null" json:"opened_at"`
	ClosedAt  *time.Time `json:"closed_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (ObservedAttendance) TableName() string {
	return "observed_attendances"
}
