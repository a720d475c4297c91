package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signed(t *testing.T, secret string, userID uint, ttl time.Duration) string {
	t.Helper()
	claims := &models.JwtCustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func serve(t *testing.T, target, authHeader string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	e := echo.New()
	var seen string
	e.GET("/me", func(c echo.Context) error {
		seen, _ = c.Get(ContextUserID).(string)
		return c.NoContent(http.StatusNoContent)
	}, JWTAuthMiddleware(testSecret))

	req := httptest.NewRequest(http.MethodGet, target, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, seen
}

func TestAuthenticate(t *testing.T) {
	good := signed(t, testSecret, 42, time.Hour)

	tests := []struct {
		name     string
		target   string
		header   string
		wantCode int
		wantUser string
	}{
		{"bearer header", "/me", "Bearer " + good, http.StatusNoContent, "42"},
		{"query token", "/me?token=" + good, "", http.StatusNoContent, "42"},
		{"missing", "/me", "", http.StatusUnauthorized, ""},
		{"malformed header", "/me", "Token " + good, http.StatusUnauthorized, ""},
		{"wrong secret", "/me", "Bearer " + signed(t, "other", 42, time.Hour), http.StatusUnauthorized, ""},
		{"expired", "/me", "Bearer " + signed(t, testSecret, 42, -time.Hour), http.StatusUnauthorized, ""},
		{"no user", "/me", "Bearer " + signed(t, testSecret, 0, time.Hour), http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, user := serve(t, tt.target, tt.header)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantUser, user)
		})
	}
}

func TestParseToken(t *testing.T) {
	claims, err := ParseToken(signed(t, testSecret, 7, time.Minute), testSecret)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)

	_, err = ParseToken("garbage", testSecret)
	assert.Error(t, err)
}
