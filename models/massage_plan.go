package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MassagePlan is a priced service offered by a store.
type MassagePlan struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	StoreID   uint            `gorm:"not null;uniqueIndex:idx_plan_store_name,priority:1" json:"store_id"`
	Store     Store           `gorm:"foreignKey:StoreID;constraint:OnDelete:CASCADE" json:"-"`
	Name      string          `gorm:"size:100;not null;uniqueIndex:idx_plan_store_name,priority:2" json:"name"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Duration  int             `gorm:"not null" json:"duration"` // minutes
	Notes     string          `gorm:"type:text" json:"notes"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the MassagePlan model
func (MassagePlan) TableName() string {
	return "massage_plans"
}

// DurationValue returns the plan duration as a time.Duration.
func (p MassagePlan) DurationValue() time.Duration {
	return time.Duration(p.Duration) * time.Minute
}
