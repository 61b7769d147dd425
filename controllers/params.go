package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/massage-panel/massage-panel-api/services"
	"github.com/massage-panel/massage-panel-api/utils"
)

// queryDate reads an optional YYYY-MM-DD query parameter as store-local
// midnight. With inclusiveEnd the following midnight is returned so the
// whole day is covered.
func queryDate(c *gin.Context, name string, loc *time.Location, inclusiveEnd bool) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	day, err := utils.ParseDate(raw, loc)
	if err != nil {
		return nil, services.ValidationError(name, err.Error())
	}
	if inclusiveEnd {
		day = day.AddDate(0, 0, 1)
	}
	return &day, nil
}

// parseTimeField parses a required ISO-8601 body field.
func parseTimeField(field, value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, services.ValidationError(field, field+" is required")
	}
	t, err := utils.ParseISOTime(value, loc)
	if err != nil {
		return time.Time{}, services.ValidationError(field, field+" must be an ISO-8601 timestamp")
	}
	return t, nil
}

// parseOptionalTime parses an optional ISO-8601 body field.
func parseOptionalTime(field string, value *string, loc *time.Location) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := parseTimeField(field, *value, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
