package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/massage-panel/massage-panel-api/logging"
	"github.com/massage-panel/massage-panel-api/middleware"
	"github.com/massage-panel/massage-panel-api/services"
)

// base carries what every controller needs besides its services.
type base struct {
	log      *logging.Logger
	now      func() time.Time
	location *time.Location
}

func newBase(log *logging.Logger, loc *time.Location) base {
	if log == nil {
		log = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return base{log: log, now: time.Now, location: loc}
}

// statusFor maps a service error kind to an HTTP status.
func statusFor(err error) int {
	appErr, ok := services.AsAppError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Kind {
	case services.KindNotFound, services.KindPermission:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError writes the management error envelope. Unclassified errors are
// logged and reported without their cause.
func (b base) respondError(c *gin.Context, err error) {
	appErr, ok := services.AsAppError(err)
	if !ok {
		b.log.Error("request failed", "path", c.FullPath(), "request_id", middleware.GetRequestID(c), "error", err)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "An unexpected error occurred",
			},
		})
		return
	}

	body := gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if len(appErr.Fields) > 0 {
		body["fields"] = appErr.Fields
	}
	c.JSON(statusFor(err), gin.H{
		"success": false,
		"error":   body,
	})
}

// respondPublicError writes the flat {error, code} body used by the public
// endpoints.
func (b base) respondPublicError(c *gin.Context, err error) {
	appErr, ok := services.AsAppError(err)
	if !ok {
		b.log.Error("public request failed", "path", c.FullPath(), "request_id", middleware.GetRequestID(c), "error", err)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "An unexpected error occurred",
			"code":  "INTERNAL_ERROR",
		})
		return
	}
	c.JSON(statusFor(err), gin.H{
		"error": appErr.Message,
		"code":  appErr.Code,
	})
}

func respondBadRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// storeScope reads the scope placed by middleware.RequireStore.
func storeScope(c *gin.Context) (services.StoreScope, bool) {
	scope, err := middleware.GetStoreScope(c)
	if err != nil {
		respondUnauthorized(c, "Could not determine the store for this request")
		return services.StoreScope{}, false
	}
	return scope, true
}

func respondUnauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
}

// pathID parses the :id parameter. A malformed id is reported as a missing
// entity.
func pathID(c *gin.Context, entity string) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, services.NotFoundError(entity)
	}
	return uint(id), nil
}

// queryUint reads an optional positive integer query parameter.
func queryUint(c *gin.Context, name string) (uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, services.ValidationError(name, name+" must be an integer")
	}
	return uint(v), nil
}

// queryInt reads an optional integer query parameter.
func queryInt(c *gin.Context, name string) (*int, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, services.ValidationError(name, name+" must be an integer")
	}
	return &v, nil
}
