package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/massage-panel/massage-panel-api/logging"
	"github.com/massage-panel/massage-panel-api/services"
)

// SurveyRequest represents the request body for recording a survey
type SurveyRequest struct {
	TherapistID uint   `json:"therapist"`
	Rating      int    `json:"rating"`
	Comment     string `json:"comment"`
}

type SurveyController struct {
	base
	surveys *services.SurveyService
}

func NewSurveyController(surveys *services.SurveyService, log *logging.Logger) *SurveyController {
	return &SurveyController{base: newBase(log, nil), surveys: surveys}
}

// List handles GET /api/v1/surveys?therapist_id=&rating=
func (sc *SurveyController) List(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}

	var filter services.SurveyFilter
	var err error
	if filter.TherapistID, err = queryUint(c, "therapist_id"); err != nil {
		sc.respondError(c, err)
		return
	}
	rating, err := queryInt(c, "rating")
	if err != nil {
		sc.respondError(c, err)
		return
	}
	if rating != nil {
		filter.Rating = *rating
	}

	surveys, err := sc.surveys.List(c.Request.Context(), scope, filter)
	if err != nil {
		sc.respondError(c, err)
		return
	}
	out := make([]SurveyResponse, 0, len(surveys))
	for i := range surveys {
		out = append(out, newSurveyResponse(&surveys[i]))
	}
	respondData(c, http.StatusOK, out)
}

// Create handles POST /api/v1/surveys
func (sc *SurveyController) Create(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}
	var req SurveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "VALIDATION_ERROR", "Invalid request data")
		return
	}

	survey, err := sc.surveys.SubmitForStore(c.Request.Context(), scope, services.SurveyInput{
		TherapistID: req.TherapistID,
		Rating:      req.Rating,
		Comment:     req.Comment,
	})
	if err != nil {
		sc.respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, newSurveyResponse(survey))
}

// Get handles GET /api/v1/surveys/:id
func (sc *SurveyController) Get(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}
	id, err := pathID(c, "survey")
	if err != nil {
		sc.respondError(c, err)
		return
	}

	survey, err := sc.surveys.Get(c.Request.Context(), scope, id)
	if err != nil {
		sc.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, newSurveyResponse(survey))
}
