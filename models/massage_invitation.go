package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvitationStatus is derived from the clock, never stored.
type InvitationStatus string

const (
	InvitationUpcoming InvitationStatus = "upcoming"
	InvitationActive   InvitationStatus = "active"
	InvitationExpired  InvitationStatus = "expired"
)

// MassageInvitation is a time-boxed discount for one (plan, therapist) pair,
// reachable only through its random slug.
type MassageInvitation struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	StoreID       uint            `gorm:"not null;index" json:"store_id"` // copied from the plan
	MassagePlanID uint            `gorm:"not null;index" json:"massage_plan_id"`
	MassagePlan   MassagePlan     `gorm:"foreignKey:MassagePlanID;constraint:OnDelete:CASCADE" json:"massage_plan"`
	TherapistID   uint            `gorm:"not null;index" json:"therapist_id"`
	Therapist     Therapist       `gorm:"foreignKey:TherapistID;constraint:OnDelete:CASCADE" json:"therapist"`
	StartTime     time.Time       `gorm:"not null;index" json:"start_time"`
	EndTime       time.Time       `gorm:"not null" json:"end_time"`
	DiscountPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"discount_price"`
	Slug          string          `gorm:"size:64;uniqueIndex;not null" json:"slug"`
	ClickCount    int64           `gorm:"not null;default:0" json:"click_count"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the MassageInvitation model
func (MassageInvitation) TableName() string {
	return "massage_invitations"
}

// StatusAt computes the lifecycle state. Both window bounds count as active.
func (i MassageInvitation) StatusAt(now time.Time) InvitationStatus {
	switch {
	case now.Before(i.StartTime):
		return InvitationUpcoming
	case now.After(i.EndTime):
		return InvitationExpired
	default:
		return InvitationActive
	}
}

// TimeRemaining returns whole minutes until the next boundary: until start
// while upcoming, until end while active, zero once expired.
func (i MassageInvitation) TimeRemaining(now time.Time) int {
	var d time.Duration
	switch i.StatusAt(now) {
	case InvitationUpcoming:
		d = i.StartTime.Sub(now)
	case InvitationActive:
		d = i.EndTime.Sub(now)
	default:
		return 0
	}
	return int(d / time.Minute)
}

// DiscountAmount is plan price minus discount price. The plan must be loaded.
func (i MassageInvitation) DiscountAmount() decimal.Decimal {
	return i.MassagePlan.Price.Sub(i.DiscountPrice)
}
