package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/booking-calendar-api/internal/models"
	appErrors "github.com/noah-isme/booking-calendar-api/pkg/errors"
	"github.com/noah-isme/booking-calendar-api/pkg/logger"
)

type stubVerifier map[string]string

func (s stubVerifier) Verify(token string) (*models.IdentityClaims, error) {
	subject, ok := s[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return &models.IdentityClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: subject}}, nil
}

func newIdentityRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/private", mw, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"caller": CallerFrom(c).UserID, "logged": c.GetString(logger.CallerKey)})
	})
	return r
}

func TestIdentityRejectsAnonymousWithSignInURL(t *testing.T) {
	r := newIdentityRouter(Identity(stubVerifier{}, "/login"))

	for _, header := range []string{"", "Basic abc", "Bearer ", "Bearer unknown"} {
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusUnauthorized, w.Code, header)
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
			Meta map[string]string `json:"meta"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "UNAUTHORIZED", body.Error.Code)
		assert.Equal(t, "/login", body.Meta["sign_in_url"])
	}
}

func TestIdentityAttachesCaller(t *testing.T) {
	r := newIdentityRouter(Identity(stubVerifier{"tok": "user_1"}, "/login"))

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "bearer tok")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"caller":"user_1","logged":"user_1"}`, w.Body.String())
}

func TestOptionalIdentityNeverBlocks(t *testing.T) {
	r := newIdentityRouter(OptionalIdentity(stubVerifier{"tok": "user_1"}))

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer bad")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"caller":"","logged":""}`, w.Body.String())
}
