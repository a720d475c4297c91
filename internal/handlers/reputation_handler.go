package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// ReputationService is the reputation API the handler drives.
type ReputationService interface {
	AwardPoints(ctx context.Context, userID string, points int, reason string) (*models.ReputationHistory, error)
	RebuildAggregate(ctx context.Context, userID string) (int, error)
	History(ctx context.Context, userID string, page, limit int) ([]models.ReputationHistory, error)
	Leaderboard(ctx context.Context, limit int) ([]models.UserStats, error)
}

// ReputationHandler handles reputation HTTP requests
type ReputationHandler struct {
	reputation ReputationService
}

func NewReputationHandler(reputation ReputationService) *ReputationHandler {
	return &ReputationHandler{reputation: reputation}
}

// RegisterReputationRoutes registers reputation routes
func (h *ReputationHandler) RegisterReputationRoutes(g *echo.Group) {
	g.POST("/reputation/award", h.Award)
	g.POST("/reputation/rebuild", h.Rebuild)
	g.GET("/reputation/history", h.GetHistory)
	g.GET("/reputation/leaderboard", h.GetLeaderboard)
}

// Award grants points to another user. Self-awards are rejected.
func (h *ReputationHandler) Award(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	var req models.AwardPointsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.UserID == userID {
		return echo.NewHTTPError(http.StatusForbidden, "Cannot award points to yourself")
	}

	entry, err := h.reputation.AwardPoints(c.Request().Context(), req.UserID, req.Points, req.Reason)
	if err != nil {
		return toHTTPError(c, err)
	}
	return created(c, entry)
}

// Rebuild recomputes the caller's reputation from the ledger
func (h *ReputationHandler) Rebuild(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	total, err := h.reputation.RebuildAggregate(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(c, err)
	}
	return ok(c, echo.Map{"reputation": total})
}

func (h *ReputationHandler) GetHistory(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	page, limit := pageParams(c)

	entries, err := h.reputation.History(c.Request().Context(), userID, page, limit)
	if err != nil {
		return toHTTPError(c, err)
	}
	return ok(c, echo.Map{"history": entries})
}

func (h *ReputationHandler) GetLeaderboard(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	top, err := h.reputation.Leaderboard(c.Request().Context(), limit)
	if err != nil {
		return toHTTPError(c, err)
	}
	return ok(c, echo.Map{"leaderboard": top})
}
