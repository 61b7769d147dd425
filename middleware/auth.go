package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/massage-panel/massage-panel-api/config"
	"github.com/massage-panel/massage-panel-api/logging"
	"github.com/massage-panel/massage-panel-api/models"
	"github.com/massage-panel/massage-panel-api/services"
)

const (
	userIDKey     = "user_id"
	storeScopeKey = "store_scope"
	storeKey      = "store"
)

// Authenticate picks the token validator for the configuration: Auth0 when
// AUTH0_DOMAIN is set, HS256 with JWT_SECRET otherwise.
func Authenticate(cfg *config.Config, log *logging.Logger) (gin.HandlerFunc, error) {
	if cfg.Auth0Domain != "" {
		return EnsureValidToken(cfg, log)
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("no token validator configured")
	}
	return EnsureValidHS256Token(cfg.JWTSecret), nil
}

// EnsureValidToken is a middleware that will check the validity of an Auth0 JWT.
func EnsureValidToken(cfg *config.Config, log *logging.Logger) (gin.HandlerFunc, error) {
	if log == nil {
		log = logging.Default()
	}
	issuerURL, err := url.Parse("https://" + cfg.Auth0Domain + "/")
	if err != nil {
		return nil, fmt.Errorf("failed to parse the issuer url: %w", err)
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{cfg.Auth0Audience},
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set up the jwt validator: %w", err)
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warn("jwt validation failed", "path", r.URL.Path, "error", err)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		if _, writeErr := w.Write([]byte(`{"success":false,"error":{"code":"INVALID_TOKEN","message":"Failed to validate JWT."}}`)); writeErr != nil {
			log.Error("failed to write error response", "error", writeErr)
		}
	}

	middleware := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
	)

	return func(c *gin.Context) {
		validated := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			validated = true
			token := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
			c.Set(userIDKey, token.RegisteredClaims.Subject)
			c.Request = r
			c.Next()
		}

		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)
		// the error handler already wrote the response
		if !validated {
			c.Abort()
		}
	}, nil
}

// EnsureValidHS256Token validates HMAC-signed bearer tokens from a trusted
// local issuer. The sub claim identifies the store owner.
func EnsureValidHS256Token(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			abortUnauthorized(c, "MISSING_TOKEN", "Authorization header with a bearer token is required")
			return
		}

		claims := jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(
			strings.TrimPrefix(auth, "Bearer "),
			&claims,
			func(token *jwt.Token) (any, error) {
				return []byte(secret), nil
			},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithLeeway(time.Minute),
		)
		if err != nil || !token.Valid || claims.Subject == "" {
			abortUnauthorized(c, "INVALID_TOKEN", "Failed to validate JWT.")
			return
		}

		c.Set(userIDKey, claims.Subject)
		c.Next()
	}
}

// StoreResolver maps an authenticated subject to the store it owns.
type StoreResolver interface {
	ResolveBySubject(ctx context.Context, subject string) (*models.Store, error)
}

// RequireStore resolves the caller's store and places its scope on the
// context. It must run after a token validator.
func RequireStore(stores StoreResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, err := GetUserID(c)
		if err != nil {
			abortUnauthorized(c, "MISSING_USER_ID", err.Error())
			return
		}

		store, err := stores.ResolveBySubject(c.Request.Context(), subject)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"success": false,
					"error": gin.H{
						"code":    "STORE_REQUIRED",
						"message": "No store is registered for this account",
					},
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INTERNAL_ERROR",
					"message": "Failed to resolve store",
				},
			})
			return
		}

		SetStore(c, store)
		c.Next()
	}
}

// SetStore places the store and its scope on the context.
func SetStore(c *gin.Context, store *models.Store) {
	c.Set(storeKey, store)
	c.Set(storeScopeKey, services.StoreScope{StoreID: store.ID})
}

// GetUserID extracts the user ID from the Gin context
func GetUserID(c *gin.Context) (string, error) {
	userID, exists := c.Get(userIDKey)
	if !exists {
		return "", &AuthError{Code: "MISSING_USER_ID", Message: "User ID not found in context"}
	}

	userIDStr, ok := userID.(string)
	if !ok {
		return "", &AuthError{Code: "INVALID_USER_ID", Message: "User ID is not a string"}
	}

	return userIDStr, nil
}

// GetStoreScope returns the scope placed by RequireStore.
func GetStoreScope(c *gin.Context) (services.StoreScope, error) {
	value, exists := c.Get(storeScopeKey)
	if !exists {
		return services.StoreScope{}, &AuthError{Code: "MISSING_STORE", Message: "Store scope not found in context"}
	}
	scope, ok := value.(services.StoreScope)
	if !ok {
		return services.StoreScope{}, &AuthError{Code: "INVALID_STORE", Message: "Store scope is not in the expected format"}
	}
	return scope, nil
}

// GetStore returns the store placed by RequireStore.
func GetStore(c *gin.Context) (*models.Store, bool) {
	value, exists := c.Get(storeKey)
	if !exists {
		return nil, false
	}
	store, ok := value.(*models.Store)
	return store, ok
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
