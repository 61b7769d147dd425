package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/massage-panel/massage-panel-api/logging"
	"github.com/massage-panel/massage-panel-api/services"
	"github.com/massage-panel/massage-panel-api/utils"
)

// ReservationRequest represents the request body for creating or updating a reservation
type ReservationRequest struct {
	MassagePlanID   uint   `json:"massage_plan_id" binding:"required"`
	TherapistID     *uint  `json:"therapist_id"`
	CustomerName    string `json:"customer_name"`
	CustomerPhone   string `json:"customer_phone"`
	AppointmentTime string `json:"appointment_time"`
}

type ReservationController struct {
	base
	reservations *services.ReservationService
}

func NewReservationController(reservations *services.ReservationService, loc *time.Location, log *logging.Logger) *ReservationController {
	return &ReservationController{base: newBase(log, loc), reservations: reservations}
}

func (rc *ReservationController) input(c *gin.Context) (services.ReservationInput, bool) {
	var req ReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "VALIDATION_ERROR", "Invalid request data")
		return services.ReservationInput{}, false
	}
	appointment, err := parseTimeField("appointment_time", req.AppointmentTime, rc.location)
	if err != nil {
		rc.respondError(c, err)
		return services.ReservationInput{}, false
	}
	return services.ReservationInput{
		MassagePlanID:   req.MassagePlanID,
		TherapistID:     req.TherapistID,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		AppointmentTime: appointment,
	}, true
}

// List handles GET /api/v1/reservations
func (rc *ReservationController) List(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}

	filter := services.ReservationFilter{
		CustomerName:  c.Query("customer_name"),
		CustomerPhone: c.Query("customer_phone"),
		TimeFilter:    c.Query("time_filter"),
	}
	var err error
	if filter.StartDate, err = queryDate(c, "start_date", rc.location, false); err != nil {
		rc.respondError(c, err)
		return
	}
	if filter.EndDate, err = queryDate(c, "end_date", rc.location, true); err != nil {
		rc.respondError(c, err)
		return
	}
	if filter.TherapistID, err = queryUint(c, "therapist_id"); err != nil {
		rc.respondError(c, err)
		return
	}
	if filter.MassagePlanID, err = queryUint(c, "massage_plan_id"); err != nil {
		rc.respondError(c, err)
		return
	}

	reservations, err := rc.reservations.List(c.Request.Context(), scope, filter, rc.now())
	if err != nil {
		rc.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, newReservationResponses(reservations))
}

// Today handles GET /api/v1/reservations/today
func (rc *ReservationController) Today(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}
	reservations, err := rc.reservations.Today(c.Request.Context(), scope, rc.now())
	if err != nil {
		rc.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, newReservationResponses(reservations))
}

// Upcoming handles GET /api/v1/reservations/upcoming
func (rc *ReservationController) Upcoming(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}
	reservations, err := rc.reservations.Upcoming(c.Request.Context(), scope, rc.now())
	if err != nil {
		rc.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, newReservationResponses(reservations))
}

// AvailableSlots handles GET /api/v1/reservations/available-slots?date=YYYY-MM-DD&therapist_id=
func (rc *ReservationController) AvailableSlots(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}

	raw := c.Query("date")
	if raw == "" {
		rc.respondError(c, services.ValidationError("date", "date is required"))
		return
	}
	date, err := utils.ParseDate(raw, rc.location)
	if err != nil {
		rc.respondError(c, services.ValidationError("date", err.Error()))
		return
	}
	therapistID, err := queryUint(c, "therapist_id")
	if err != nil {
		rc.respondError(c, err)
		return
	}
	var only *uint
	if therapistID != 0 {
		only = &therapistID
	}

	slots, err := rc.reservations.AvailableSlots(c.Request.Context(), scope, date, only)
	if err != nil {
		rc.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{
		"date":  date.Format("2006-01-02"),
		"slots": newAvailableSlotResponses(slots),
	})
}

// Create handles POST /api/v1/reservations
func (rc *ReservationController) Create(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}
	in, ok := rc.input(c)
	if !ok {
		return
	}

	reservation, err := rc.reservations.Create(c.Request.Context(), scope, in)
	if err != nil {
		rc.respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, newReservationResponse(reservation))
}

// Get handles GET /api/v1/reservations/:id
func (rc *ReservationController) Get(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}
	id, err := pathID(c, "reservation")
	if err != nil {
		rc.respondError(c, err)
		return
	}

	reservation, err := rc.reservations.Get(c.Request.Context(), scope, id)
	if err != nil {
		rc.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, newReservationResponse(reservation))
}

// Update handles PUT /api/v1/reservations/:id
func (rc *ReservationController) Update(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}
	id, err := pathID(c, "reservation")
	if err != nil {
		rc.respondError(c, err)
		return
	}
	in, ok := rc.input(c)
	if !ok {
		return
	}

	reservation, err := rc.reservations.Update(c.Request.Context(), scope, id, in)
	if err != nil {
		rc.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, newReservationResponse(reservation))
}

// Delete handles DELETE /api/v1/reservations/:id
func (rc *ReservationController) Delete(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}
	id, err := pathID(c, "reservation")
	if err != nil {
		rc.respondError(c, err)
		return
	}

	if err := rc.reservations.Delete(c.Request.Context(), scope, id); err != nil {
		rc.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
