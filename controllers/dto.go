package controllers

import (
	"time"

	"github.com/massage-panel/massage-panel-api/models"
	"github.com/massage-panel/massage-panel-api/services"
	"github.com/shopspring/decimal"
)

// Management projections carry every field staff may edit or need for
// bookkeeping. Public projections expose only what a customer sees.

type StoreResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func newStoreResponse(s *models.Store) StoreResponse {
	return StoreResponse{ID: s.ID, Name: s.Name, CreatedAt: s.CreatedAt}
}

type TherapistResponse struct {
	ID        uint                   `json:"id"`
	Name      string                 `json:"name"`
	Phone     string                 `json:"phone"`
	LineID    string                 `json:"line_id"`
	NickName  string                 `json:"nick_name"`
	Status    models.TherapistStatus `json:"status"`
	Enabled   bool                   `json:"enabled"`
	PhotoURL  *string                `json:"photo_url"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

func newTherapistResponse(t *models.Therapist) TherapistResponse {
	return TherapistResponse{
		ID:        t.ID,
		Name:      t.Name,
		Phone:     t.Phone,
		LineID:    t.LineID,
		NickName:  t.NickName,
		Status:    t.Status,
		Enabled:   t.Bookable(),
		PhotoURL:  t.PhotoURL,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// PublicTherapistResponse backs the customer review page.
type PublicTherapistResponse struct {
	ID        uint    `json:"id"`
	Name      string  `json:"name"`
	NickName  string  `json:"nick_name"`
	PhotoURL  *string `json:"photo_url"`
	StoreName string  `json:"store_name"`
}

func newPublicTherapistResponse(t *models.Therapist, s *models.Store) PublicTherapistResponse {
	return PublicTherapistResponse{ID: t.ID, Name: t.Name, NickName: t.NickName, PhotoURL: t.PhotoURL, StoreName: s.Name}
}

type PlanResponse struct {
	ID        uint            `json:"id"`
	StoreID   uint            `json:"store_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Duration  int             `json:"duration"`
	Notes     string          `json:"notes"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func newPlanResponse(p *models.MassagePlan) PlanResponse {
	return PlanResponse{
		ID:        p.ID,
		StoreID:   p.StoreID,
		Name:      p.Name,
		Price:     p.Price,
		Duration:  p.Duration,
		Notes:     p.Notes,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type ReservationResponse struct {
	ID              uint                    `json:"id"`
	MassagePlanID   uint                    `json:"massage_plan_id"`
	MassagePlanName string                  `json:"massage_plan_name"`
	TherapistID     *uint                   `json:"therapist_id"`
	TherapistName   string                  `json:"therapist_name"`
	InvitationID    *uint                   `json:"invitation_id"`
	CustomerName    string                  `json:"customer_name"`
	CustomerPhone   string                  `json:"customer_phone"`
	AppointmentTime time.Time               `json:"appointment_time"`
	EndTime         time.Time               `json:"end_time"`
	Discount        *models.DiscountContext `json:"discount"`
	CreatedAt       time.Time               `json:"created_at"`
}

func newReservationResponse(r *models.Reservation) ReservationResponse {
	resp := ReservationResponse{
		ID:              r.ID,
		MassagePlanID:   r.MassagePlanID,
		MassagePlanName: r.MassagePlan.Name,
		TherapistID:     r.TherapistID,
		InvitationID:    r.InvitationID,
		CustomerName:    r.CustomerName,
		CustomerPhone:   r.CustomerPhone,
		AppointmentTime: r.AppointmentTime,
		EndTime:         r.EndTime(),
		CreatedAt:       r.CreatedAt,
	}
	if r.Therapist != nil {
		resp.TherapistName = r.Therapist.Name
	}
	if d := r.Discount.Data(); d.Applied() {
		resp.Discount = &d
	}
	return resp
}

func newReservationResponses(rs []models.Reservation) []ReservationResponse {
	out := make([]ReservationResponse, 0, len(rs))
	for i := range rs {
		out = append(out, newReservationResponse(&rs[i]))
	}
	return out
}

type InvitationResponse struct {
	ID              uint                    `json:"id"`
	MassagePlanID   uint                    `json:"massage_plan_id"`
	MassagePlanName string                  `json:"massage_plan_name"`
	OriginalPrice   decimal.Decimal         `json:"original_price"`
	TherapistID     uint                    `json:"therapist_id"`
	TherapistName   string                  `json:"therapist_name"`
	StartTime       time.Time               `json:"start_time"`
	EndTime         time.Time               `json:"end_time"`
	DiscountPrice   decimal.Decimal         `json:"discount_price"`
	DiscountAmount  decimal.Decimal         `json:"discount_amount"`
	Slug            string                  `json:"slug"`
	ClickCount      int64                   `json:"click_count"`
	Notes           string                  `json:"notes"`
	Status          models.InvitationStatus `json:"status"`
	IsActive        bool                    `json:"is_active"`
	IsUpcoming      bool                    `json:"is_upcoming"`
	IsExpired       bool                    `json:"is_expired"`
	TimeRemaining   int                     `json:"time_remaining"`
	IsBooked        bool                    `json:"is_booked"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

func newInvitationResponse(s *services.InvitationSnapshot) InvitationResponse {
	inv := s.Invitation
	return InvitationResponse{
		ID:              inv.ID,
		MassagePlanID:   inv.MassagePlanID,
		MassagePlanName: inv.MassagePlan.Name,
		OriginalPrice:   inv.MassagePlan.Price,
		TherapistID:     inv.TherapistID,
		TherapistName:   inv.Therapist.Name,
		StartTime:       inv.StartTime,
		EndTime:         inv.EndTime,
		DiscountPrice:   inv.DiscountPrice,
		DiscountAmount:  s.DiscountAmount,
		Slug:            inv.Slug,
		ClickCount:      inv.ClickCount,
		Notes:           inv.Notes,
		Status:          s.Status,
		IsActive:        s.IsActive(),
		IsUpcoming:      s.IsUpcoming(),
		IsExpired:       s.IsExpired(),
		TimeRemaining:   s.TimeRemaining,
		IsBooked:        s.IsBooked,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
	}
}

func newInvitationResponses(snaps []services.InvitationSnapshot) []InvitationResponse {
	out := make([]InvitationResponse, 0, len(snaps))
	for i := range snaps {
		out = append(out, newInvitationResponse(&snaps[i]))
	}
	return out
}

// PublicInvitationResponse is what a customer sees behind an invitation link.
type PublicInvitationResponse struct {
	Slug           string  `json:"slug"`
	MassagePlan    string  `json:"massage_plan"`
	Duration       int     `json:"duration"`
	PlanNotes      string  `json:"plan_notes"`
	Therapist      string  `json:"therapist"`
	TherapistNick  string  `json:"therapist_nick_name"`
	StartTime      string  `json:"start_time"`
	EndTime        string  `json:"end_time"`
	OriginalPrice  float64 `json:"original_price"`
	DiscountPrice  float64 `json:"discount_price"`
	DiscountAmount float64 `json:"discount_amount"`
	Notes          string  `json:"notes"`
	IsActive       bool    `json:"is_active"`
	IsUpcoming     bool    `json:"is_upcoming"`
	IsExpired      bool    `json:"is_expired"`
	TimeRemaining  int     `json:"time_remaining"`
	IsBooked       bool    `json:"is_booked"`
}

func newPublicInvitationResponse(s *services.InvitationSnapshot, loc *time.Location) PublicInvitationResponse {
	inv := s.Invitation
	return PublicInvitationResponse{
		Slug:           inv.Slug,
		MassagePlan:    inv.MassagePlan.Name,
		Duration:       inv.MassagePlan.Duration,
		PlanNotes:      inv.MassagePlan.Notes,
		Therapist:      inv.Therapist.Name,
		TherapistNick:  inv.Therapist.NickName,
		StartTime:      inv.StartTime.In(loc).Format(time.RFC3339),
		EndTime:        inv.EndTime.In(loc).Format(time.RFC3339),
		OriginalPrice:  inv.MassagePlan.Price.InexactFloat64(),
		DiscountPrice:  inv.DiscountPrice.InexactFloat64(),
		DiscountAmount: s.DiscountAmount.InexactFloat64(),
		Notes:          inv.Notes,
		IsActive:       s.IsActive(),
		IsUpcoming:     s.IsUpcoming(),
		IsExpired:      s.IsExpired(),
		TimeRemaining:  s.TimeRemaining,
		IsBooked:       s.IsBooked,
	}
}

// BookingReceiptResponse is returned by a successful public booking.
type BookingReceiptResponse struct {
	Message         string  `json:"message"`
	ReservationID   uint    `json:"reservation_id"`
	CustomerName    string  `json:"customer_name"`
	AppointmentTime string  `json:"appointment_time"`
	MassagePlan     string  `json:"massage_plan"`
	Therapist       string  `json:"therapist"`
	OriginalPrice   float64 `json:"original_price"`
	DiscountPrice   float64 `json:"discount_price"`
	Savings         float64 `json:"savings"`
}

func newBookingReceiptResponse(r *services.BookingReceipt, loc *time.Location) BookingReceiptResponse {
	return BookingReceiptResponse{
		Message:         "Booking confirmed",
		ReservationID:   r.ReservationID,
		CustomerName:    r.CustomerName,
		AppointmentTime: r.AppointmentTime.In(loc).Format(time.RFC3339),
		MassagePlan:     r.MassagePlan,
		Therapist:       r.Therapist,
		OriginalPrice:   r.OriginalPrice.InexactFloat64(),
		DiscountPrice:   r.DiscountPrice.InexactFloat64(),
		Savings:         r.Savings.InexactFloat64(),
	}
}

type SurveyResponse struct {
	ID            uint      `json:"id"`
	TherapistID   uint      `json:"therapist"`
	TherapistName string    `json:"therapist_name"`
	Rating        int       `json:"rating"`
	Comment       string    `json:"comment"`
	CreatedAt     time.Time `json:"created_at"`
}

func newSurveyResponse(s *models.ServiceSurvey) SurveyResponse {
	return SurveyResponse{
		ID:            s.ID,
		TherapistID:   s.TherapistID,
		TherapistName: s.Therapist.Name,
		Rating:        s.Rating,
		Comment:       s.Comment,
		CreatedAt:     s.CreatedAt,
	}
}

// PublicSurveyResponse acknowledges a customer review without exposing
// store-internal identifiers beyond the therapist.
type PublicSurveyResponse struct {
	ID            uint   `json:"id"`
	TherapistID   uint   `json:"therapist"`
	TherapistName string `json:"therapist_name"`
	Rating        int    `json:"rating"`
	Comment       string `json:"comment"`
	CreatedAt     string `json:"created_at"`
}

func newPublicSurveyResponse(s *models.ServiceSurvey) PublicSurveyResponse {
	return PublicSurveyResponse{
		ID:            s.ID,
		TherapistID:   s.TherapistID,
		TherapistName: s.Therapist.Name,
		Rating:        s.Rating,
		Comment:       s.Comment,
		CreatedAt:     s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type AvailableSlotResponse struct {
	Time                string    `json:"time"`
	DateTime            time.Time `json:"datetime"`
	Available           bool      `json:"available"`
	AvailableTherapists []uint    `json:"available_therapists"`
}

func newAvailableSlotResponses(slots []services.AvailableSlot) []AvailableSlotResponse {
	out := make([]AvailableSlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, AvailableSlotResponse{
			Time:                s.Time,
			DateTime:            s.DateTime,
			Available:           s.Available,
			AvailableTherapists: s.AvailableTherapists,
		})
	}
	return out
}
