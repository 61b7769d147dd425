package services

import (
	"context"
	"errors"
	"time"

	"github.com/massage-panel/massage-panel-api/logging"
	"github.com/massage-panel/massage-panel-api/metrics"
	"github.com/massage-panel/massage-panel-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvitationInput carries the editable fields of an invitation.
type InvitationInput struct {
	MassagePlanID uint
	TherapistID   uint
	StartTime     time.Time
	EndTime       time.Time
	DiscountPrice decimal.Decimal
	Notes         string
}

// InvitationFilter narrows List. Zero values mean no filter.
type InvitationFilter struct {
	Status        models.InvitationStatus
	TherapistID   uint
	MassagePlanID uint
	StartDate     *time.Time // start_time on or after
	EndDate       *time.Time // end_time before
}

// InvitationSnapshot is an invitation plus its clock-derived state.
type InvitationSnapshot struct {
	Invitation     models.MassageInvitation
	Status         models.InvitationStatus
	DiscountAmount decimal.Decimal
	TimeRemaining  int
	IsBooked       bool
}

// IsActive reports whether the snapshot was taken inside the window.
func (s InvitationSnapshot) IsActive() bool { return s.Status == models.InvitationActive }

// IsUpcoming reports whether the snapshot was taken before the window.
func (s InvitationSnapshot) IsUpcoming() bool { return s.Status == models.InvitationUpcoming }

// IsExpired reports whether the snapshot was taken after the window.
func (s InvitationSnapshot) IsExpired() bool { return s.Status == models.InvitationExpired }

// InvitationService manages promotional invitations and their public views.
type InvitationService struct {
	db      *gorm.DB
	checker *ConflictChecker
	metrics *metrics.BookingMetrics
	log     *logging.Logger
}

func NewInvitationService(db *gorm.DB, checker *ConflictChecker, m *metrics.BookingMetrics, log *logging.Logger) *InvitationService {
	if log == nil {
		log = logging.Discard()
	}
	return &InvitationService{db: db, checker: checker, metrics: m, log: log}
}

// Create validates and stores a new invitation with a fresh slug.
func (s *InvitationService) Create(ctx context.Context, scope StoreScope, in InvitationInput) (*models.MassageInvitation, error) {
	var inv models.MassageInvitation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		plan, therapist, err := s.validate(ctx, tx, scope, in, 0)
		if err != nil {
			return err
		}

		inv = models.MassageInvitation{
			StoreID:       plan.StoreID,
			MassagePlanID: plan.ID,
			TherapistID:   therapist.ID,
			StartTime:     in.StartTime.UTC(),
			EndTime:       in.EndTime.UTC(),
			DiscountPrice: in.DiscountPrice,
			Slug:          NewSlug(),
			Notes:         in.Notes,
		}
		if err := tx.Omit(clause.Associations).Create(&inv).Error; err != nil {
			return err
		}
		inv.MassagePlan = *plan
		inv.Therapist = *therapist
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invitation created", "store_id", scope.StoreID, "invitation_id", inv.ID, "therapist_id", inv.TherapistID)
	return &inv, nil
}

// Update edits an invitation that has not started yet.
func (s *InvitationService) Update(ctx context.Context, scope StoreScope, id uint, in InvitationInput, now time.Time) (*models.MassageInvitation, error) {
	var inv *models.MassageInvitation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.find(ctx, tx, scope, id)
		if err != nil {
			return err
		}
		if !now.Before(existing.StartTime) {
			return InvalidStateError("invitation has already started and can no longer be edited")
		}
		booked, err := isBooked(ctx, tx, existing)
		if err != nil {
			return err
		}
		if booked {
			return InvalidStateError("invitation has already been booked and can no longer be edited")
		}

		plan, therapist, err := s.validate(ctx, tx, scope, in, existing.ID)
		if err != nil {
			return err
		}

		existing.MassagePlanID = plan.ID
		existing.TherapistID = therapist.ID
		existing.StartTime = in.StartTime.UTC()
		existing.EndTime = in.EndTime.UTC()
		existing.DiscountPrice = in.DiscountPrice
		existing.Notes = in.Notes
		if err := tx.Omit(clause.Associations).Save(existing).Error; err != nil {
			return err
		}
		existing.MassagePlan = *plan
		existing.Therapist = *therapist
		inv = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// Delete removes an invitation unless it is currently active.
func (s *InvitationService) Delete(ctx context.Context, scope StoreScope, id uint, now time.Time) error {
	inv, err := s.find(ctx, s.db, scope, id)
	if err != nil {
		return err
	}
	if inv.StatusAt(now) == models.InvitationActive {
		return InvalidStateError("invitation is in progress and cannot be deleted")
	}
	// Reservations booked through it stay, unlinked. Their discount context
	// still records the offer.
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Reservation{}).
			Where("invitation_id = ?", inv.ID).
			Update("invitation_id", nil).Error
		if err != nil {
			return err
		}
		return tx.Delete(&models.MassageInvitation{}, inv.ID).Error
	})
}

// Get returns one invitation of the store.
func (s *InvitationService) Get(ctx context.Context, scope StoreScope, id uint, now time.Time) (*InvitationSnapshot, error) {
	inv, err := s.find(ctx, s.db, scope, id)
	if err != nil {
		return nil, err
	}
	return snapshot(ctx, s.db, inv, now)
}

// List returns the store's invitations, newest first.
func (s *InvitationService) List(ctx context.Context, scope StoreScope, filter InvitationFilter, now time.Time) ([]InvitationSnapshot, error) {
	query := scoped(s.db.WithContext(ctx), scope).
		Preload("MassagePlan").
		Preload("Therapist").
		Order("created_at DESC").
		Order("id DESC")

	now = now.UTC()
	switch filter.Status {
	case models.InvitationActive:
		query = query.Where("start_time <= ? AND end_time >= ?", now, now)
	case models.InvitationUpcoming:
		query = query.Where("start_time > ?", now)
	case models.InvitationExpired:
		query = query.Where("end_time < ?", now)
	}
	if filter.TherapistID != 0 {
		query = query.Where("therapist_id = ?", filter.TherapistID)
	}
	if filter.MassagePlanID != 0 {
		query = query.Where("massage_plan_id = ?", filter.MassagePlanID)
	}
	if filter.StartDate != nil {
		query = query.Where("start_time >= ?", filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		query = query.Where("end_time < ?", filter.EndDate.UTC())
	}

	var invitations []models.MassageInvitation
	if err := query.Find(&invitations).Error; err != nil {
		return nil, err
	}

	out := make([]InvitationSnapshot, 0, len(invitations))
	for i := range invitations {
		snap, err := snapshot(ctx, s.db, &invitations[i], now)
		if err != nil {
			return nil, err
		}
		out = append(out, *snap)
	}
	return out, nil
}

// Active lists invitations whose window contains now.
func (s *InvitationService) Active(ctx context.Context, scope StoreScope, now time.Time) ([]InvitationSnapshot, error) {
	return s.List(ctx, scope, InvitationFilter{Status: models.InvitationActive}, now)
}

// Upcoming lists invitations that have not started.
func (s *InvitationService) Upcoming(ctx context.Context, scope StoreScope, now time.Time) ([]InvitationSnapshot, error) {
	return s.List(ctx, scope, InvitationFilter{Status: models.InvitationUpcoming}, now)
}

// Duplicate copies an invitation, optionally moving its window. The copy gets
// its own slug and goes through the same checks as Create.
func (s *InvitationService) Duplicate(ctx context.Context, scope StoreScope, id uint, start, end *time.Time) (*models.MassageInvitation, error) {
	src, err := s.find(ctx, s.db, scope, id)
	if err != nil {
		return nil, err
	}

	in := InvitationInput{
		MassagePlanID: src.MassagePlanID,
		TherapistID:   src.TherapistID,
		StartTime:     src.StartTime,
		EndTime:       src.EndTime,
		DiscountPrice: src.DiscountPrice,
		Notes:         src.Notes,
	}
	if start != nil {
		in.StartTime = *start
	}
	if end != nil {
		in.EndTime = *end
	}
	return s.Create(ctx, scope, in)
}

// RecordView bumps the click counter of the invitation behind slug and
// returns its current state. Concurrent views may each count.
func (s *InvitationService) RecordView(ctx context.Context, slug string, now time.Time) (*InvitationSnapshot, error) {
	result := s.db.WithContext(ctx).
		Model(&models.MassageInvitation{}).
		Where("slug = ?", slug).
		UpdateColumn("click_count", gorm.Expr("click_count + ?", 1))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, NotFoundError("invitation")
	}
	s.metrics.ObserveInvitationView()

	var inv models.MassageInvitation
	err := s.db.WithContext(ctx).
		Preload("MassagePlan").
		Preload("Therapist").
		Where("slug = ?", slug).
		First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("invitation")
		}
		return nil, err
	}
	return snapshot(ctx, s.db, &inv, now)
}

// TimeRemaining returns whole minutes to the invitation's next boundary.
func (s *InvitationService) TimeRemaining(inv models.MassageInvitation, now time.Time) int {
	return inv.TimeRemaining(now)
}

func (s *InvitationService) find(ctx context.Context, db *gorm.DB, scope StoreScope, id uint) (*models.MassageInvitation, error) {
	var inv models.MassageInvitation
	err := scoped(db.WithContext(ctx), scope).
		Preload("MassagePlan").
		Preload("Therapist").
		First(&inv, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("invitation")
		}
		return nil, err
	}
	return &inv, nil
}

// validate applies the create rules in order. excludeID is the invitation
// being edited, if any.
func (s *InvitationService) validate(ctx context.Context, db *gorm.DB, scope StoreScope, in InvitationInput, excludeID uint) (*models.MassagePlan, *models.Therapist, error) {
	window, err := NewTimeWindow(in.StartTime, in.EndTime)
	if err != nil {
		return nil, nil, err
	}
	if !in.DiscountPrice.IsPositive() {
		return nil, nil, ValidationError("discount_price", "discount price must be greater than 0")
	}

	// Both lookups are scoped, so plan and therapist share the store.
	plan, err := findPlan(ctx, db, scope, in.MassagePlanID)
	if err != nil {
		return nil, nil, err
	}
	if in.DiscountPrice.GreaterThanOrEqual(plan.Price) {
		return nil, nil, ValidationError("discount_price", "discount price must be lower than the plan price")
	}
	therapist, err := requireBookable(ctx, db, scope, in.TherapistID)
	if err != nil {
		return nil, nil, err
	}

	clash, err := s.checker.HasInvitationConflict(ctx, db, therapist.ID, window, excludeID)
	if err != nil {
		return nil, nil, err
	}
	if clash {
		return nil, nil, conflictOn("start_time", "therapist already has an invitation in this time window")
	}
	clash, err = s.checker.HasReservationConflict(ctx, db, therapist.ID, window, 0)
	if err != nil {
		return nil, nil, err
	}
	if clash {
		return nil, nil, conflictOn("start_time", "therapist already has a reservation in this time window")
	}
	return plan, therapist, nil
}

func conflictOn(field, message string) *AppError {
	err := ConflictError(message)
	err.Fields = map[string]string{field: message}
	return err
}

// isBooked reports whether a reservation claims the invitation, either by
// link or by falling on the same plan and therapist inside its window.
func isBooked(ctx context.Context, db *gorm.DB, inv *models.MassageInvitation) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("invitation_id = ? OR (massage_plan_id = ? AND therapist_id = ? AND appointment_time >= ? AND appointment_time <= ?)",
			inv.ID, inv.MassagePlanID, inv.TherapistID, inv.StartTime.UTC(), inv.EndTime.UTC()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func snapshot(ctx context.Context, db *gorm.DB, inv *models.MassageInvitation, now time.Time) (*InvitationSnapshot, error) {
	booked, err := isBooked(ctx, db, inv)
	if err != nil {
		return nil, err
	}
	return &InvitationSnapshot{
		Invitation:     *inv,
		Status:         inv.StatusAt(now),
		DiscountAmount: inv.DiscountAmount(),
		TimeRemaining:  inv.TimeRemaining(now),
		IsBooked:       booked,
	}, nil
}
