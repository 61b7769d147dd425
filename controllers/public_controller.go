package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/massage-panel/massage-panel-api/logging"
	"github.com/massage-panel/massage-panel-api/services"
)

// BookInvitationRequest is the public booking form
type BookInvitationRequest struct {
	CustomerName    string `json:"customer_name"`
	CustomerPhone   string `json:"customer_phone"`
	AppointmentTime string `json:"appointment_time"`
}

// PublicReviewRequest is the public review form. Rating is kept raw so a
// non-integer value is rejected rather than truncated.
type PublicReviewRequest struct {
	TherapistID uint            `json:"therapist"`
	Rating      json.RawMessage `json:"rating"`
	Comment     string          `json:"comment"`
}

// PublicController serves the unauthenticated customer endpoints.
type PublicController struct {
	base
	invitations *services.InvitationService
	bookings    *services.BookingService
	therapists  *services.TherapistService
	surveys     *services.SurveyService
}

func NewPublicController(
	invitations *services.InvitationService,
	bookings *services.BookingService,
	therapists *services.TherapistService,
	surveys *services.SurveyService,
	loc *time.Location,
	log *logging.Logger,
) *PublicController {
	return &PublicController{
		base:        newBase(log, loc),
		invitations: invitations,
		bookings:    bookings,
		therapists:  therapists,
		surveys:     surveys,
	}
}

// ViewInvitation handles GET /invitation/:slug/ and
// GET /api/public-invitations/:slug/view/. Every view is counted.
func (pc *PublicController) ViewInvitation(c *gin.Context) {
	snap, err := pc.invitations.RecordView(c.Request.Context(), c.Param("slug"), pc.now())
	if err != nil {
		pc.respondPublicError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPublicInvitationResponse(snap, pc.location))
}

// BookInvitation handles POST /api/public-invitations/:slug/book/
func (pc *PublicController) BookInvitation(c *gin.Context) {
	var req BookInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// an unreadable body is treated as empty so the booking checks
		// report the first failing rule
		req = BookInvitationRequest{}
	}

	receipt, err := pc.bookings.Book(c.Request.Context(), c.Param("slug"), services.BookingRequest{
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		AppointmentTime: req.AppointmentTime,
	}, pc.now())
	if err != nil {
		pc.respondPublicError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newBookingReceiptResponse(receipt, pc.location))
}

// ReviewTherapist handles GET /review/:therapist_id/
func (pc *PublicController) ReviewTherapist(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("therapist_id"), 10, 64)
	if err != nil || id == 0 {
		pc.respondPublicError(c, services.NotFoundError("therapist"))
		return
	}

	therapist, store, err := pc.therapists.GetPublic(c.Request.Context(), uint(id))
	if err != nil {
		pc.respondPublicError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPublicTherapistResponse(therapist, store))
}

// SubmitReview handles POST /api/public-reviews/
func (pc *PublicController) SubmitReview(c *gin.Context) {
	var req PublicReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid JSON body",
			"code":  services.CodeMalformedInput,
		})
		return
	}

	var rating int
	if len(req.Rating) > 0 && string(req.Rating) != "null" {
		if err := json.Unmarshal(req.Rating, &rating); err != nil {
			pc.respondPublicError(c, services.ValidationError("rating", "rating must be an integer between 1 and 5"))
			return
		}
	}

	survey, err := pc.surveys.Submit(c.Request.Context(), services.SurveyInput{
		TherapistID: req.TherapistID,
		Rating:      rating,
		Comment:     req.Comment,
	})
	if err != nil {
		pc.respondPublicError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Review submitted",
		"data":    newPublicSurveyResponse(survey),
	})
}
