package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/massage-panel/massage-panel-api/logging"
	"github.com/massage-panel/massage-panel-api/models"
	"github.com/massage-panel/massage-panel-api/services"
	"github.com/shopspring/decimal"
)

// InvitationRequest represents the request body for creating or updating an invitation
type InvitationRequest struct {
	MassagePlanID uint            `json:"massage_plan_id" binding:"required"`
	TherapistID   uint            `json:"therapist_id" binding:"required"`
	StartTime     string          `json:"start_time"`
	EndTime       string          `json:"end_time"`
	DiscountPrice decimal.Decimal `json:"discount_price"`
	Notes         string          `json:"notes"`
}

// DuplicateInvitationRequest optionally moves the copied window
type DuplicateInvitationRequest struct {
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
}

type InvitationController struct {
	base
	invitations *services.InvitationService
}

func NewInvitationController(invitations *services.InvitationService, loc *time.Location, log *logging.Logger) *InvitationController {
	return &InvitationController{base: newBase(log, loc), invitations: invitations}
}

func (ic *InvitationController) input(c *gin.Context) (services.InvitationInput, bool) {
	var req InvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "VALIDATION_ERROR", "Invalid request data")
		return services.InvitationInput{}, false
	}
	start, err := parseTimeField("start_time", req.StartTime, ic.location)
	if err != nil {
		ic.respondError(c, err)
		return services.InvitationInput{}, false
	}
	end, err := parseTimeField("end_time", req.EndTime, ic.location)
	if err != nil {
		ic.respondError(c, err)
		return services.InvitationInput{}, false
	}
	return services.InvitationInput{
		MassagePlanID: req.MassagePlanID,
		TherapistID:   req.TherapistID,
		StartTime:     start,
		EndTime:       end,
		DiscountPrice: req.DiscountPrice,
		Notes:         req.Notes,
	}, true
}

// List handles GET /api/v1/invitations?status=&therapist_id=&massage_plan_id=&start_date=&end_date=
func (ic *InvitationController) List(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}

	filter := services.InvitationFilter{Status: models.InvitationStatus(c.Query("status"))}
	var err error
	if filter.TherapistID, err = queryUint(c, "therapist_id"); err != nil {
		ic.respondError(c, err)
		return
	}
	if filter.MassagePlanID, err = queryUint(c, "massage_plan_id"); err != nil {
		ic.respondError(c, err)
		return
	}
	if filter.StartDate, err = queryDate(c, "start_date", ic.location, false); err != nil {
		ic.respondError(c, err)
		return
	}
	if filter.EndDate, err = queryDate(c, "end_date", ic.location, true); err != nil {
		ic.respondError(c, err)
		return
	}

	snaps, err := ic.invitations.List(c.Request.Context(), scope, filter, ic.now())
	if err != nil {
		ic.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, newInvitationResponses(snaps))
}

// Active handles GET /api/v1/invitations/active
func (ic *InvitationController) Active(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}
	snaps, err := ic.invitations.Active(c.Request.Context(), scope, ic.now())
	if err != nil {
		ic.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, newInvitationResponses(snaps))
}

// Upcoming handles GET /api/v1/invitations/upcoming
func (ic *InvitationController) Upcoming(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}
	snaps, err := ic.invitations.Upcoming(c.Request.Context(), scope, ic.now())
	if err != nil {
		ic.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, newInvitationResponses(snaps))
}

// Create handles POST /api/v1/invitations
func (ic *InvitationController) Create(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}
	in, ok := ic.input(c)
	if !ok {
		return
	}

	inv, err := ic.invitations.Create(c.Request.Context(), scope, in)
	if err != nil {
		ic.respondError(c, err)
		return
	}
	ic.respondSnapshot(c, scope, inv.ID, http.StatusCreated)
}

// Get handles GET /api/v1/invitations/:id
func (ic *InvitationController) Get(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}
	id, err := pathID(c, "invitation")
	if err != nil {
		ic.respondError(c, err)
		return
	}
	ic.respondSnapshot(c, scope, id, http.StatusOK)
}

// Update handles PUT /api/v1/invitations/:id. Started invitations are frozen.
func (ic *InvitationController) Update(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}
	id, err := pathID(c, "invitation")
	if err != nil {
		ic.respondError(c, err)
		return
	}
	in, ok := ic.input(c)
	if !ok {
		return
	}

	if _, err := ic.invitations.Update(c.Request.Context(), scope, id, in, ic.now()); err != nil {
		ic.respondError(c, err)
		return
	}
	ic.respondSnapshot(c, scope, id, http.StatusOK)
}

// Delete handles DELETE /api/v1/invitations/:id. Active invitations cannot be deleted.
func (ic *InvitationController) Delete(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}
	id, err := pathID(c, "invitation")
	if err != nil {
		ic.respondError(c, err)
		return
	}

	if err := ic.invitations.Delete(c.Request.Context(), scope, id, ic.now()); err != nil {
		ic.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Duplicate handles POST /api/v1/invitations/:id/duplicate
func (ic *InvitationController) Duplicate(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}
	id, err := pathID(c, "invitation")
	if err != nil {
		ic.respondError(c, err)
		return
	}

	var req DuplicateInvitationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "VALIDATION_ERROR", "Invalid request data")
			return
		}
	}
	start, err := parseOptionalTime("start_time", req.StartTime, ic.location)
	if err != nil {
		ic.respondError(c, err)
		return
	}
	end, err := parseOptionalTime("end_time", req.EndTime, ic.location)
	if err != nil {
		ic.respondError(c, err)
		return
	}

	inv, err := ic.invitations.Duplicate(c.Request.Context(), scope, id, start, end)
	if err != nil {
		ic.respondError(c, err)
		return
	}
	ic.respondSnapshot(c, scope, inv.ID, http.StatusCreated)
}

func (ic *InvitationController) respondSnapshot(c *gin.Context, scope services.StoreScope, id uint, status int) {
	snap, err := ic.invitations.Get(c.Request.Context(), scope, id, ic.now())
	if err != nil {
		ic.respondError(c, err)
		return
	}
	respondData(c, status, newInvitationResponse(snap))
}
