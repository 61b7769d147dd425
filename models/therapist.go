package models

import (
	"time"
)

// TherapistStatus is the lifecycle of a therapist. Deleted is terminal.
type TherapistStatus string

const (
	TherapistActive   TherapistStatus = "active"
	TherapistDisabled TherapistStatus = "disabled"
	TherapistDeleted  TherapistStatus = "deleted"
)

// Valid reports whether s is a known status.
func (s TherapistStatus) Valid() bool {
	switch s {
	case TherapistActive, TherapistDisabled, TherapistDeleted:
		return true
	}
	return false
}

// Therapist belongs to exactly one store and is never hard-deleted, so
// historical reservations and surveys keep their reference.
type Therapist struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	StoreID    uint            `gorm:"not null;index" json:"store_id"`
	Store      Store           `gorm:"foreignKey:StoreID;constraint:OnDelete:CASCADE" json:"-"`
	Name       string          `gorm:"size:100;not null" json:"name"`
	Phone      string          `gorm:"size:15" json:"phone"`
	LineID     string          `gorm:"size:50" json:"line_id"`
	NickName   string          `gorm:"size:100" json:"nick_name"`
	Status     TherapistStatus `gorm:"size:16;not null;default:'active';index" json:"status"`
	PhotoS3Key *string         `gorm:"column:photo_s3_key" json:"-"`
	PhotoURL   *string         `gorm:"-" json:"photo_url,omitempty"` // computed, presigned URL
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the Therapist model
func (Therapist) TableName() string {
	return "therapists"
}

// Bookable reports whether the therapist may take new reservations,
// invitations or surveys.
func (t Therapist) Bookable() bool {
	return t.Status == TherapistActive
}

// IsDeleted reports whether the therapist has been soft-deleted.
func (t Therapist) IsDeleted() bool {
	return t.Status == TherapistDeleted
}
