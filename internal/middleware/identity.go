package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/booking-calendar-api/internal/models"
	appErrors "github.com/noah-isme/booking-calendar-api/pkg/errors"
	"github.com/noah-isme/booking-calendar-api/pkg/logger"
	"github.com/noah-isme/booking-calendar-api/pkg/response"
)

// ContextUserKey is the gin context key storing verified identity claims.
const ContextUserKey = "currentUser"

// TokenVerifier validates bearer tokens issued by the identity provider.
type TokenVerifier interface {
	Verify(token string) (*models.IdentityClaims, error)
}

// Identity protects routes by requiring a signed-in caller. Rejections carry
// meta.sign_in_url so clients can redirect to the sign-in page.
func Identity(verifier TokenVerifier, signInURL string) gin.HandlerFunc {
	meta := map[string]interface{}{"sign_in_url": signInURL}
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "sign in required"), meta)
			c.Abort()
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			response.Error(c, err, meta)
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalIdentity attaches claims when a valid token is present but does not block.
func OptionalIdentity(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if claims, err := verifier.Verify(token); err == nil {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

// CallerFrom returns the caller attached by Identity. It is zero for anonymous requests.
func CallerFrom(c *gin.Context) models.Caller {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return models.Caller{}
	}
	claims, ok := value.(*models.IdentityClaims)
	if !ok {
		return models.Caller{}
	}
	return claims.Caller()
}

func setClaims(c *gin.Context, claims *models.IdentityClaims) {
	c.Set(ContextUserKey, claims)
	c.Set(logger.CallerKey, claims.Subject)
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}
