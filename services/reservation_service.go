package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/massage-panel/massage-panel-api/logging"
	"github.com/massage-panel/massage-panel-api/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Opening hours used for available slot listings, in the store timezone.
const (
	slotDayStart = 9 * time.Hour
	slotDayEnd   = 21 * time.Hour
	slotStep     = 30 * time.Minute
)

// Time filters accepted by ReservationFilter.TimeFilter.
const (
	TimeFilterUpcoming = "upcoming"
	TimeFilterPast     = "past"
	TimeFilterToday    = "today"
)

// ReservationInput carries a staff-entered reservation.
type ReservationInput struct {
	MassagePlanID   uint
	TherapistID     *uint
	CustomerName    string
	CustomerPhone   string
	AppointmentTime time.Time
}

// ReservationFilter narrows List. Zero values mean no filter.
type ReservationFilter struct {
	StartDate     *time.Time // appointment on or after
	EndDate       *time.Time // appointment before
	TherapistID   uint
	MassagePlanID uint
	CustomerName  string // contains, case-insensitive
	CustomerPhone string // contains
	TimeFilter    string
}

// AvailableSlot is one bookable start time of a day.
type AvailableSlot struct {
	Time                string
	DateTime            time.Time
	Available           bool
	AvailableTherapists []uint
}

type ReservationService struct {
	db       *gorm.DB
	checker  *ConflictChecker
	location *time.Location
	log      *logging.Logger
}

func NewReservationService(db *gorm.DB, checker *ConflictChecker, loc *time.Location, log *logging.Logger) *ReservationService {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logging.Discard()
	}
	return &ReservationService{db: db, checker: checker, location: loc, log: log}
}

// Create records a reservation entered by staff.
func (s *ReservationService) Create(ctx context.Context, scope StoreScope, in ReservationInput) (*models.Reservation, error) {
	var reservation models.Reservation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		in, err := s.validate(ctx, tx, scope, in, nil)
		if err != nil {
			return err
		}

		reservation = models.Reservation{
			StoreID:         scope.StoreID,
			MassagePlanID:   in.MassagePlanID,
			TherapistID:     in.TherapistID,
			CustomerName:    in.CustomerName,
			CustomerPhone:   in.CustomerPhone,
			AppointmentTime: in.AppointmentTime,
			Discount:        datatypes.NewJSONType(models.DiscountContext{}),
		}
		if err := tx.Omit(clause.Associations).Create(&reservation).Error; err != nil {
			if appErr := classifyUniqueViolation(err); appErr != nil {
				return appErr
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, scope, reservation.ID)
}

// Update edits a reservation. A reservation booked through an invitation may
// stay inside that invitation's window.
func (s *ReservationService) Update(ctx context.Context, scope StoreScope, id uint, in ReservationInput) (*models.Reservation, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.find(ctx, tx, scope, id)
		if err != nil {
			return err
		}
		in, err = s.validate(ctx, tx, scope, in, existing)
		if err != nil {
			return err
		}

		err = tx.Model(&models.Reservation{}).Where("id = ?", existing.ID).Updates(map[string]interface{}{
			"massage_plan_id":  in.MassagePlanID,
			"therapist_id":     in.TherapistID,
			"customer_name":    in.CustomerName,
			"customer_phone":   in.CustomerPhone,
			"appointment_time": in.AppointmentTime,
		}).Error
		if err != nil {
			if appErr := classifyUniqueViolation(err); appErr != nil {
				return appErr
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, scope, id)
}

// Delete cancels a reservation.
func (s *ReservationService) Delete(ctx context.Context, scope StoreScope, id uint) error {
	reservation, err := s.find(ctx, s.db, scope, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(&models.Reservation{}, reservation.ID).Error
}

// Get returns one reservation of the store with plan and therapist loaded.
func (s *ReservationService) Get(ctx context.Context, scope StoreScope, id uint) (*models.Reservation, error) {
	return s.find(ctx, s.db, scope, id)
}

// List returns the store's reservations, latest appointment first.
func (s *ReservationService) List(ctx context.Context, scope StoreScope, filter ReservationFilter, now time.Time) ([]models.Reservation, error) {
	query := scoped(s.db.WithContext(ctx), scope).
		Preload("MassagePlan").
		Preload("Therapist").
		Order("appointment_time DESC")

	if filter.StartDate != nil {
		query = query.Where("appointment_time >= ?", filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		query = query.Where("appointment_time < ?", filter.EndDate.UTC())
	}
	if filter.TherapistID != 0 {
		query = query.Where("therapist_id = ?", filter.TherapistID)
	}
	if filter.MassagePlanID != 0 {
		query = query.Where("massage_plan_id = ?", filter.MassagePlanID)
	}
	if name := strings.TrimSpace(filter.CustomerName); name != "" {
		query = query.Where("LOWER(customer_name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if phone := strings.TrimSpace(filter.CustomerPhone); phone != "" {
		query = query.Where("customer_phone LIKE ?", "%"+phone+"%")
	}

	now = now.UTC()
	switch filter.TimeFilter {
	case TimeFilterUpcoming:
		query = query.Where("appointment_time > ?", now)
	case TimeFilterPast:
		query = query.Where("appointment_time < ?", now)
	case TimeFilterToday:
		start, end := s.dayBounds(now)
		query = query.Where("appointment_time >= ? AND appointment_time < ?", start, end)
	}

	var reservations []models.Reservation
	if err := query.Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

// Today lists reservations on the current store-local day.
func (s *ReservationService) Today(ctx context.Context, scope StoreScope, now time.Time) ([]models.Reservation, error) {
	return s.List(ctx, scope, ReservationFilter{TimeFilter: TimeFilterToday}, now)
}

// Upcoming lists reservations that have not started.
func (s *ReservationService) Upcoming(ctx context.Context, scope StoreScope, now time.Time) ([]models.Reservation, error) {
	return s.List(ctx, scope, ReservationFilter{TimeFilter: TimeFilterUpcoming}, now)
}

// AvailableSlots lists the half-hour starts between 09:00 and 21:00 on date
// (store-local) and which active therapists are free at each. With
// therapistID set only that therapist is considered.
func (s *ReservationService) AvailableSlots(ctx context.Context, scope StoreScope, date time.Time, therapistID *uint) ([]AvailableSlot, error) {
	var therapists []models.Therapist
	if therapistID != nil {
		therapist, err := findTherapist(ctx, s.db, scope, *therapistID)
		if err != nil {
			return nil, err
		}
		if !therapist.Bookable() {
			return nil, NotFoundError("therapist")
		}
		therapists = append(therapists, *therapist)
	} else {
		err := scoped(s.db.WithContext(ctx), scope).
			Where("status = ?", models.TherapistActive).
			Order("id ASC").
			Find(&therapists).Error
		if err != nil {
			return nil, err
		}
	}

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, s.location)
	var slots []AvailableSlot
	for offset := slotDayStart; offset < slotDayEnd; offset += slotStep {
		start := day.Add(offset)
		window := WindowFrom(start, slotStep)

		free := []uint{}
		for _, t := range therapists {
			// Slots ignore the lookback buffer: a slot is taken only by a real overlap.
			busy, err := s.checker.HasOverlappingReservation(ctx, s.db, t.ID, window, 0)
			if err != nil {
				return nil, err
			}
			if !busy {
				busy, err = s.checker.HasInvitationConflict(ctx, s.db, t.ID, window, 0)
				if err != nil {
					return nil, err
				}
			}
			if !busy {
				free = append(free, t.ID)
			}
		}

		slots = append(slots, AvailableSlot{
			Time:                start.Format("15:04"),
			DateTime:            start,
			Available:           len(free) > 0,
			AvailableTherapists: free,
		})
	}
	return slots, nil
}

func (s *ReservationService) dayBounds(now time.Time) (time.Time, time.Time) {
	local := now.In(s.location)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

func (s *ReservationService) find(ctx context.Context, db *gorm.DB, scope StoreScope, id uint) (*models.Reservation, error) {
	var reservation models.Reservation
	err := scoped(db.WithContext(ctx), scope).
		Preload("MassagePlan").
		Preload("Therapist").
		First(&reservation, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("reservation")
		}
		return nil, err
	}
	return &reservation, nil
}

// validate normalizes input and checks plan, therapist and time conflicts.
// existing is the reservation being edited, if any.
func (s *ReservationService) validate(ctx context.Context, db *gorm.DB, scope StoreScope, in ReservationInput, existing *models.Reservation) (ReservationInput, error) {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	if in.CustomerName == "" {
		return in, ValidationError("customer_name", "customer name is required")
	}
	if in.CustomerPhone == "" {
		return in, ValidationError("customer_phone", "customer phone is required")
	}
	if len(in.CustomerPhone) > 20 {
		return in, ValidationError("customer_phone", "customer phone must be at most 20 characters")
	}
	if in.AppointmentTime.IsZero() {
		return in, ValidationError("appointment_time", "appointment time is required")
	}
	in.AppointmentTime = in.AppointmentTime.UTC()

	plan, err := findPlan(ctx, db, scope, in.MassagePlanID)
	if err != nil {
		return in, err
	}
	if in.TherapistID == nil {
		return in, nil
	}

	therapist, err := requireBookable(ctx, db, scope, *in.TherapistID)
	if err != nil {
		return in, err
	}

	var excludeReservation, excludeInvitation uint
	if existing != nil {
		excludeReservation = existing.ID
		if existing.InvitationID != nil {
			excludeInvitation = *existing.InvitationID
		}
	}

	window := WindowFrom(in.AppointmentTime, plan.DurationValue())
	clash, err := s.checker.HasReservationConflict(ctx, db, therapist.ID, window, excludeReservation)
	if err != nil {
		return in, err
	}
	if clash {
		return in, conflictOn("appointment_time", "therapist already has a reservation around this time")
	}
	clash, err = s.checker.HasInvitationConflict(ctx, db, therapist.ID, window, excludeInvitation)
	if err != nil {
		return in, err
	}
	if clash {
		return in, conflictOn("appointment_time", "this time is held by a promotional invitation")
	}
	return in, nil
}
