package models

import (
	"time"
)

// ServiceSurvey is a customer rating of a therapist. Rows are append-only.
type ServiceSurvey struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TherapistID uint      `gorm:"not null;index" json:"therapist_id"`
	Therapist   Therapist `gorm:"foreignKey:TherapistID;constraint:OnDelete:CASCADE" json:"-"`
	Rating      int       `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Comment     string    `gorm:"type:text" json:"comment"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for the ServiceSurvey model
func (ServiceSurvey) TableName() string {
	return "service_surveys"
}
