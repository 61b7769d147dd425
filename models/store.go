package models

import (
	"time"
)

// Store is the tenant root. Therapists, plans, reservations and invitations
// all hang off a store.
type Store struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	OwnerSubject string    `gorm:"size:191;uniqueIndex;not null" json:"-"` // auth subject of the owner ('sub' claim)
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Store model
func (Store) TableName() string {
	return "stores"
}
