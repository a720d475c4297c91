package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// WSServer upgrades an authenticated request into a relay connection.
type WSServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID string) error
}

// WSHandler serves the presence relay websocket
type WSHandler struct {
	server WSServer
}

func NewWSHandler(server WSServer) *WSHandler {
	return &WSHandler{server: server}
}

// RegisterWSRoutes registers the websocket endpoint on an authenticated group
func (h *WSHandler) RegisterWSRoutes(g *echo.Group) {
	g.GET("/ws", h.Serve)
}

func (h *WSHandler) Serve(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	// The upgrader has already written the HTTP error response on failure.
	if err := h.server.ServeWS(c.Response(), c.Request(), userID); err != nil {
		slog.Debug("websocket upgrade failed", "user_id", userID, "error", err)
	}
	return nil
}
