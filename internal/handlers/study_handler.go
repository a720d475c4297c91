package handlers

import (
	"context"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/anonto42/studyhub/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// StudyService is the pomodoro and study-session API the handler drives.
type StudyService interface {
	CompletePomodoro(ctx context.Context, userID string) (*models.PomodoroResult, error)
	CreateSession(ctx context.Context, creatorID string, req models.CreateSessionRequest) (*models.StudySession, error)
	GetSession(ctx context.Context, sessionID string) (*models.StudySession, error)
	JoinSession(ctx context.Context, sessionID, userID string) (*models.StudySession, error)
	CompleteSession(ctx context.Context, sessionID, userID string) (*services.SessionCompletion, error)
}

// StatsReader returns a user's aggregates.
type StatsReader interface {
	Stats(ctx context.Context, userID string) (*models.UserStats, error)
}

// StudyHandler handles pomodoro and study session HTTP requests
type StudyHandler struct {
	study StudyService
	stats StatsReader
}

func NewStudyHandler(study StudyService, stats StatsReader) *StudyHandler {
	return &StudyHandler{study: study, stats: stats}
}

// RegisterStudyRoutes registers study routes
func (h *StudyHandler) RegisterStudyRoutes(g *echo.Group) {
	g.POST("/pomodoros/complete", h.CompletePomodoro)
	g.GET("/stats/me", h.GetMyStats)
	g.POST("/sessions", h.CreateSession)
	g.GET("/sessions/:id", h.GetSession)
	g.POST("/sessions/:id/join", h.JoinSession)
	g.POST("/sessions/:id/complete", h.CompleteSession)
}

func (h *StudyHandler) CompletePomodoro(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	var req models.CompletePomodoroRequest
	if c.Request().ContentLength > 0 {
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}
	}

	res, err := h.study.CompletePomodoro(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(c, err)
	}
	return ok(c, res)
}

func (h *StudyHandler) GetMyStats(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	st, err := h.stats.Stats(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(c, err)
	}
	return ok(c, st)
}

func (h *StudyHandler) CreateSession(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	var req models.CreateSessionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	session, err := h.study.CreateSession(c.Request().Context(), userID, req)
	if err != nil {
		return toHTTPError(c, err)
	}
	return created(c, session)
}

func (h *StudyHandler) GetSession(c echo.Context) error {
	if _, err := requireUser(c); err != nil {
		return err
	}
	session, err := h.study.GetSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(c, err)
	}
	return ok(c, session)
}

func (h *StudyHandler) JoinSession(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	session, err := h.study.JoinSession(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return toHTTPError(c, err)
	}
	return ok(c, session)
}

// CompleteSession completes a session and awards its participants
func (h *StudyHandler) CompleteSession(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	res, err := h.study.CompleteSession(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return toHTTPError(c, err)
	}
	return ok(c, res)
}
