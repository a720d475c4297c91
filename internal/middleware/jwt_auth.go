package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

// Context keys set by the auth middlewares.
const (
	ContextUserID = "userID"
	ContextClaims = "user"
)

var errMissingToken = errors.New("missing token")

// bearerToken extracts the token from "Authorization: Bearer <token>" or,
// for websocket upgrades that cannot set headers, from ?token=.
func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if t := c.QueryParam("token"); t != "" {
			return t, nil
		}
		return "", errMissingToken
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
	}
	return parts[1], nil
}

// ParseToken verifies an HS256 token signed with secret and returns its claims.
func ParseToken(tokenString, secret string) (*models.JwtCustomClaims, error) {
	claims := &models.JwtCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// JWTAuthMiddleware checks for a valid local JWT and stores the caller's
// claims and user id in the context.
func JWTAuthMiddleware(secret string) echo.MiddlewareFunc {
	return Authenticate(secret, nil)
}

// Authenticate accepts a local JWT and, when firebase is non-nil, falls back
// to a Firebase ID token.
func Authenticate(secret string, firebase *FirebaseResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := bearerToken(c)
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					return he
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
			}

			claims, err := ParseToken(tokenString, secret)
			if err == nil {
				c.Set(ContextClaims, claims)
				c.Set(ContextUserID, (&models.User{ID: claims.UserID}).StringID())
				return next(c)
			}
			if errors.Is(err, jwt.ErrSignatureInvalid) && firebase == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token signature")
			}

			if firebase != nil {
				user, ferr := firebase.Resolve(c.Request().Context(), tokenString)
				if ferr == nil {
					c.Set(ContextUserID, user.StringID())
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
		}
	}
}
