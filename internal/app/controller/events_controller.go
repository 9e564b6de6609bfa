package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/ikkim/taxfiling-backend/internal/middleware"
	ws "github.com/ikkim/taxfiling-backend/internal/websocket"
)

type EventsController struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

func NewEventsController(hub *ws.Hub, allowedOrigins []string) *EventsController {
	return &EventsController{
		hub:      hub,
		upgrader: ws.NewUpgrader(allowedOrigins),
	}
}

// Stream upgrades to a websocket that receives the workspace's report events
// GET /api/v1/tax/events
func (ctrl *EventsController) Stream(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	workspaceID, ok := requireWorkspace(c)
	if !ok {
		return
	}
	userID, _ := middleware.GetUserID(c)

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade to websocket", err, map[string]interface{}{
			"workspace_id": workspaceID,
		})
		return
	}

	log.Info("Report event stream opened", map[string]interface{}{
		"workspace_id": workspaceID,
		"user_id":      userID,
	})
	ws.Serve(ctrl.hub, conn, workspaceID, userID)
}
