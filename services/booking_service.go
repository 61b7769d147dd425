package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/massage-panel/massage-panel-api/logging"
	"github.com/massage-panel/massage-panel-api/metrics"
	"github.com/massage-panel/massage-panel-api/models"
	"github.com/massage-panel/massage-panel-api/utils"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CodeTherapistUnavailable rejects bookings for a therapist who was disabled
// or removed after the invitation went out.
const CodeTherapistUnavailable = "THERAPIST_UNAVAILABLE"

// BookingRequest is the customer's public booking form. AppointmentTime is
// the raw ISO-8601 string so that parsing failures get their own code.
type BookingRequest struct {
	CustomerName    string
	CustomerPhone   string
	AppointmentTime string
}

// BookingReceipt is returned to the customer after a successful booking.
type BookingReceipt struct {
	ReservationID   uint
	CustomerName    string
	AppointmentTime time.Time
	MassagePlan     string
	Therapist       string
	OriginalPrice   decimal.Decimal
	DiscountPrice   decimal.Decimal
	Savings         decimal.Decimal
}

// BookingService turns an invitation slug into a reservation. The first
// customer wins; the storage unique indexes decide races the pre-checks miss.
type BookingService struct {
	db       *gorm.DB
	checker  *ConflictChecker
	location *time.Location
	metrics  *metrics.BookingMetrics
	log      *logging.Logger
}

func NewBookingService(db *gorm.DB, checker *ConflictChecker, loc *time.Location, m *metrics.BookingMetrics, log *logging.Logger) *BookingService {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logging.Discard()
	}
	return &BookingService{db: db, checker: checker, location: loc, metrics: m, log: log}
}

// Book validates the request against the invitation and commits the
// reservation in one transaction. The first failing rule is returned.
func (s *BookingService) Book(ctx context.Context, slug string, req BookingRequest, now time.Time) (*BookingReceipt, error) {
	started := time.Now()
	receipt, err := s.book(ctx, slug, req, now.UTC())

	outcome := "booked"
	if err != nil {
		outcome = "error"
		if appErr, ok := AsAppError(err); ok {
			outcome = appErr.Code
		}
	}
	s.metrics.ObserveBooking(outcome, time.Since(started).Seconds())

	if err != nil {
		if _, ok := AsAppError(err); !ok {
			s.log.Error("booking failed", "slug", slug, "error", err)
		}
		return nil, err
	}
	s.log.Info("invitation booked", "slug", slug, "reservation_id", receipt.ReservationID)
	return receipt, nil
}

func (s *BookingService) book(ctx context.Context, slug string, req BookingRequest, now time.Time) (*BookingReceipt, error) {
	var receipt *BookingReceipt
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.MassageInvitation
		err := tx.Preload("MassagePlan").Preload("Therapist").Where("slug = ?", slug).First(&inv).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return bookingError(CodeNotFound, "invitation not found")
			}
			return err
		}

		booked, err := isBooked(ctx, tx, &inv)
		if err != nil {
			return err
		}
		if booked {
			return bookingError(CodeAlreadyBooked, "this invitation has already been booked")
		}

		name := strings.TrimSpace(req.CustomerName)
		phone := strings.TrimSpace(req.CustomerPhone)
		if name == "" || phone == "" || strings.TrimSpace(req.AppointmentTime) == "" {
			return bookingError(CodeMissingField, "customer_name, customer_phone and appointment_time are required")
		}

		appointment, err := utils.ParseISOTime(req.AppointmentTime, s.location)
		if err != nil {
			return bookingError(CodeMalformedInput, "appointment_time must be an ISO-8601 timestamp")
		}

		window := TimeWindow{Start: inv.StartTime.UTC(), End: inv.EndTime.UTC()}
		if !window.Contains(appointment) {
			return bookingError(CodeOutOfWindow, "appointment time must fall within the invitation window")
		}

		duration := inv.MassagePlan.DurationValue()
		if appointment.Add(duration).After(window.End) {
			return bookingError(CodeInsufficientWindow, "the massage would run past the end of the invitation window")
		}
		if now.After(window.End.Add(-duration)) {
			return bookingError(CodeExpired, "this invitation can no longer be booked")
		}
		if !appointment.After(now) {
			return bookingError(CodePastTime, "appointment time must be in the future")
		}
		if !inv.Therapist.Bookable() {
			return bookingError(CodeTherapistUnavailable, "the therapist is no longer available")
		}

		taken, err := s.checker.HasOverlappingReservation(ctx, tx, inv.TherapistID, WindowFrom(appointment, duration), 0)
		if err != nil {
			return err
		}
		if taken {
			return bookingError(CodeSlotTaken, "this time slot has already been booked")
		}

		discount := models.DiscountContext{
			InvitationID:  inv.ID,
			OriginalPrice: inv.MassagePlan.Price,
			DiscountPrice: inv.DiscountPrice,
			Savings:       inv.DiscountAmount(),
		}
		therapistID := inv.TherapistID
		invitationID := inv.ID
		reservation := models.Reservation{
			StoreID:         inv.StoreID,
			MassagePlanID:   inv.MassagePlanID,
			TherapistID:     &therapistID,
			InvitationID:    &invitationID,
			CustomerName:    name,
			CustomerPhone:   phone,
			AppointmentTime: appointment,
			Discount:        datatypes.NewJSONType(discount),
		}
		if err := tx.Omit(clause.Associations).Create(&reservation).Error; err != nil {
			if appErr := classifyUniqueViolation(err); appErr != nil {
				return appErr
			}
			return err
		}

		receipt = &BookingReceipt{
			ReservationID:   reservation.ID,
			CustomerName:    reservation.CustomerName,
			AppointmentTime: reservation.AppointmentTime,
			MassagePlan:     inv.MassagePlan.Name,
			Therapist:       inv.Therapist.Name,
			OriginalPrice:   discount.OriginalPrice,
			DiscountPrice:   discount.DiscountPrice,
			Savings:         discount.Savings,
		}
		return nil
	})
	if err != nil {
		if _, ok := AsAppError(err); ok {
			return nil, err
		}
		// A violation can also surface at commit time.
		if appErr := classifyUniqueViolation(err); appErr != nil {
			return nil, appErr
		}
		return nil, err
	}
	return receipt, nil
}
