package models

import "time"

const (
	JustificationPending  = "pending"
	JustificationApproved = "approved"
	JustificationRejected = "rejected"
)

// TeamJustification - обоснование на уровне бригады за конкретный день
type TeamJustification struct {
	ID                uint      `gorm:"primarykey" json:"id"`
	CrewID            uint      `gorm:"not null;index:idx_justification_crew_date" json:"crew_id"`
	Date              time.Time `gorm:"type:date;not null;index:idx_justification_crew_date" json:"date"`
	Status            string    `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	SuppressesAbsence bool      `gorm:"not null;default:false" json:"suppresses_absence"`
	Reason            string    `json:"reason"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TeamJustification) TableName() string {
	return "team_justifications"
}

// SuppressesAbsences - одобренное обоснование, отменяющее индивидуальные прогулы
func (j *TeamJustification) SuppressesAbsences() bool {
	return j != nil && j.Status == JustificationApproved && j.SuppressesAbsence
}
