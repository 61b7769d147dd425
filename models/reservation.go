package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// DiscountContext records the offer a reservation was booked under.
// Reservations created by staff carry the zero value.
type DiscountContext struct {
	InvitationID  uint            `json:"invitation_id,omitempty"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	DiscountPrice decimal.Decimal `json:"discount_price"`
	Savings       decimal.Decimal `json:"savings"`
}

// Applied reports whether the reservation was booked through an invitation.
func (d DiscountContext) Applied() bool {
	return d.InvitationID != 0
}

// Reservation is a customer appointment. The unique index on
// (therapist_id, appointment_time) and the unique invitation_id are the
// storage guards behind public booking.
type Reservation struct {
	ID              uint                                 `gorm:"primaryKey" json:"id"`
	StoreID         uint                                 `gorm:"not null;index" json:"store_id"`
	Store           Store                                `gorm:"foreignKey:StoreID;constraint:OnDelete:CASCADE" json:"-"`
	MassagePlanID   uint                                 `gorm:"not null;index" json:"massage_plan_id"`
	MassagePlan     MassagePlan                          `gorm:"foreignKey:MassagePlanID;constraint:OnDelete:CASCADE" json:"massage_plan"`
	TherapistID     *uint                                `gorm:"uniqueIndex:idx_reservation_therapist_slot,priority:1" json:"therapist_id"`
	Therapist       *Therapist                           `gorm:"foreignKey:TherapistID;constraint:OnDelete:SET NULL" json:"therapist,omitempty"`
	InvitationID    *uint                                `gorm:"uniqueIndex:idx_reservation_invitation" json:"invitation_id,omitempty"`
	Invitation      *MassageInvitation                   `gorm:"foreignKey:InvitationID;constraint:OnDelete:SET NULL" json:"-"`
	CustomerName    string                               `gorm:"size:100;not null" json:"customer_name"`
	CustomerPhone   string                               `gorm:"size:20;not null" json:"customer_phone"`
	AppointmentTime time.Time                            `gorm:"not null;uniqueIndex:idx_reservation_therapist_slot,priority:2;index" json:"appointment_time"`
	Discount        datatypes.JSONType[DiscountContext] `gorm:"not null" json:"discount"`
	CreatedAt       time.Time                            `json:"created_at"`
	UpdatedAt       time.Time                            `json:"updated_at"`
}

// TableName specifies the table name for the Reservation model
func (Reservation) TableName() string {
	return "reservations"
}

// EndTime returns the end of the effective interval. The plan must be loaded.
func (r Reservation) EndTime() time.Time {
	return r.AppointmentTime.Add(r.MassagePlan.DurationValue())
}
