package services

import (
	"context"
	"time"

	"github.com/massage-panel/massage-panel-api/models"
	"gorm.io/gorm"
)

// ConflictChecker answers whether a candidate window collides with a
// therapist's existing reservations or invitations. It never writes and
// takes the *gorm.DB to query so callers can run it inside a transaction.
type ConflictChecker struct {
	// lookback additionally flags reservations that start up to this long
	// before the candidate window. Zero disables it.
	lookback time.Duration
}

// NewConflictChecker creates a checker with the given reservation lookback.
func NewConflictChecker(lookback time.Duration) *ConflictChecker {
	if lookback < 0 {
		lookback = 0
	}
	return &ConflictChecker{lookback: lookback}
}

// Lookback returns the configured reservation lookback.
func (c *ConflictChecker) Lookback() time.Duration {
	return c.lookback
}

type occupiedSlot struct {
	ID              uint
	AppointmentTime time.Time
	Duration        int
}

// HasReservationConflict reports whether any reservation of the therapist
// has an effective interval intersecting window, or starts within the
// lookback before window.Start. excludeID skips one reservation (updates).
func (c *ConflictChecker) HasReservationConflict(ctx context.Context, db *gorm.DB, therapistID uint, window TimeWindow, excludeID uint) (bool, error) {
	return c.reservationConflict(ctx, db, therapistID, window, excludeID, c.lookback)
}

// HasOverlappingReservation is HasReservationConflict without the lookback:
// only true interval intersection counts.
func (c *ConflictChecker) HasOverlappingReservation(ctx context.Context, db *gorm.DB, therapistID uint, window TimeWindow, excludeID uint) (bool, error) {
	return c.reservationConflict(ctx, db, therapistID, window, excludeID, 0)
}

func (c *ConflictChecker) reservationConflict(ctx context.Context, db *gorm.DB, therapistID uint, window TimeWindow, excludeID uint, lookback time.Duration) (bool, error) {
	// Bound the scan by the longest plan this therapist has been booked for.
	var maxDuration int
	err := db.WithContext(ctx).
		Model(&models.Reservation{}).
		Joins("JOIN massage_plans ON massage_plans.id = reservations.massage_plan_id").
		Where("reservations.therapist_id = ?", therapistID).
		Select("COALESCE(MAX(massage_plans.duration), 0)").
		Scan(&maxDuration).Error
	if err != nil {
		return false, err
	}

	reach := time.Duration(maxDuration) * time.Minute
	if lookback > reach {
		reach = lookback
	}

	query := db.WithContext(ctx).
		Model(&models.Reservation{}).
		Joins("JOIN massage_plans ON massage_plans.id = reservations.massage_plan_id").
		Select("reservations.id, reservations.appointment_time, massage_plans.duration").
		Where("reservations.therapist_id = ?", therapistID).
		Where("reservations.appointment_time >= ? AND reservations.appointment_time < ?", window.Start.Add(-reach), window.End)
	if excludeID != 0 {
		query = query.Where("reservations.id <> ?", excludeID)
	}

	var slots []occupiedSlot
	if err := query.Scan(&slots).Error; err != nil {
		return false, err
	}

	for _, s := range slots {
		occupied := WindowFrom(s.AppointmentTime, time.Duration(s.Duration)*time.Minute)
		if Overlaps(occupied, window) {
			return true, nil
		}
		if lookback > 0 && !occupied.Start.Before(window.Start.Add(-lookback)) && occupied.Start.Before(window.End) {
			return true, nil
		}
	}
	return false, nil
}

// HasInvitationConflict reports strict overlap with another invitation of the
// same therapist. excludeID skips one invitation (updates, or a reservation's
// own invitation).
func (c *ConflictChecker) HasInvitationConflict(ctx context.Context, db *gorm.DB, therapistID uint, window TimeWindow, excludeID uint) (bool, error) {
	query := db.WithContext(ctx).
		Model(&models.MassageInvitation{}).
		Where("therapist_id = ? AND start_time < ? AND end_time > ?", therapistID, window.End, window.Start)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
