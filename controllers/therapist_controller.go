package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/massage-panel/massage-panel-api/logging"
	"github.com/massage-panel/massage-panel-api/models"
	"github.com/massage-panel/massage-panel-api/services"
	"github.com/massage-panel/massage-panel-api/utils"
)

// TherapistRequest represents the request body for creating or updating a therapist
type TherapistRequest struct {
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone"`
	LineID   string `json:"line_id"`
	NickName string `json:"nick_name"`
}

func (r TherapistRequest) input() services.TherapistInput {
	return services.TherapistInput{Name: r.Name, Phone: r.Phone, LineID: r.LineID, NickName: r.NickName}
}

// SetEnabledRequest toggles a therapist on or off
type SetEnabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type TherapistController struct {
	base
	therapists *services.TherapistService
}

func NewTherapistController(therapists *services.TherapistService, log *logging.Logger) *TherapistController {
	return &TherapistController{base: newBase(log, nil), therapists: therapists}
}

// List handles GET /api/v1/therapists
func (tc *TherapistController) List(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}

	filter := services.TherapistFilter{Search: c.Query("search")}
	switch c.Query("enabled") {
	case "true":
		filter.Status = models.TherapistActive
	case "false":
		filter.Status = models.TherapistDisabled
	}

	therapists, err := tc.therapists.List(c.Request.Context(), scope, filter)
	if err != nil {
		tc.respondError(c, err)
		return
	}
	out := make([]TherapistResponse, 0, len(therapists))
	for i := range therapists {
		out = append(out, newTherapistResponse(&therapists[i]))
	}
	respondData(c, http.StatusOK, out)
}

// Create handles POST /api/v1/therapists
func (tc *TherapistController) Create(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}
	var req TherapistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "VALIDATION_ERROR", "Invalid request data")
		return
	}

	therapist, err := tc.therapists.Create(c.Request.Context(), scope, req.input())
	if err != nil {
		tc.respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, newTherapistResponse(therapist))
}

// Get handles GET /api/v1/therapists/:id
func (tc *TherapistController) Get(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}
	id, err := pathID(c, "therapist")
	if err != nil {
		tc.respondError(c, err)
		return
	}

	therapist, err := tc.therapists.Get(c.Request.Context(), scope, id)
	if err != nil {
		tc.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, newTherapistResponse(therapist))
}

// Update handles PUT /api/v1/therapists/:id
func (tc *TherapistController) Update(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}
	id, err := pathID(c, "therapist")
	if err != nil {
		tc.respondError(c, err)
		return
	}
	var req TherapistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "VALIDATION_ERROR", "Invalid request data")
		return
	}

	therapist, err := tc.therapists.Update(c.Request.Context(), scope, id, req.input())
	if err != nil {
		tc.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, newTherapistResponse(therapist))
}

// SetEnabled handles PATCH /api/v1/therapists/:id/enabled
func (tc *TherapistController) SetEnabled(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}
	id, err := pathID(c, "therapist")
	if err != nil {
		tc.respondError(c, err)
		return
	}
	var req SetEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "VALIDATION_ERROR", "enabled must be true or false")
		return
	}

	therapist, err := tc.therapists.SetEnabled(c.Request.Context(), scope, id, *req.Enabled)
	if err != nil {
		tc.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, newTherapistResponse(therapist))
}

// Delete handles DELETE /api/v1/therapists/:id. The therapist is kept as
// deleted so past reservations and surveys stay intact.
func (tc *TherapistController) Delete(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}
	id, err := pathID(c, "therapist")
	if err != nil {
		tc.respondError(c, err)
		return
	}

	if err := tc.therapists.SoftDelete(c.Request.Context(), scope, id); err != nil {
		tc.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadPhoto handles POST /api/v1/therapists/:id/photo (multipart field "photo")
func (tc *TherapistController) UploadPhoto(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}
	id, err := pathID(c, "therapist")
	if err != nil {
		tc.respondError(c, err)
		return
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		respondBadRequest(c, "MISSING_FILE", "A photo file is required")
		return
	}

	therapist, err := tc.therapists.UploadPhoto(c.Request.Context(), scope, id, fileHeader)
	if err != nil {
		var uploadErr *utils.FileUploadError
		if errors.As(err, &uploadErr) {
			respondBadRequest(c, uploadErr.Code, uploadErr.Message)
			return
		}
		tc.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, newTherapistResponse(therapist))
}
