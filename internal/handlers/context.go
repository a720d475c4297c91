package handlers

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/anonto42/studyhub/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// ContextUserID is the echo context key under which the auth middleware
// stores the caller's user id.
const ContextUserID = "userID"

// getUserIDFromContext returns the authenticated user id, or "" when the
// request carries none.
func getUserIDFromContext(c echo.Context) string {
	id, _ := c.Get(ContextUserID).(string)
	return id
}

func requireUser(c echo.Context) (string, error) {
	id := getUserIDFromContext(c)
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	return id, nil
}

// toHTTPError maps a service error onto an HTTP status.
func toHTTPError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidArgument):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		slog.ErrorContext(c.Request().Context(), "request failed",
			"method", c.Request().Method, "path", c.Path(), "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
}

// bindAndValidate binds the request body into req and runs the registered
// validator over it.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}

func pageParams(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}
	return page, limit
}

func pageMeta(page, limit int, total int64) echo.Map {
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return echo.Map{
		"currentPage":     page,
		"totalPages":      totalPages,
		"totalItems":      total,
		"itemsPerPage":    limit,
		"hasNextPage":     page < totalPages,
		"hasPreviousPage": page > 1,
	}
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": data})
}

func created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": data})
}
