package http

import (
	"log"

	"github.com/gin-gonic/gin"

	cacheport "charla/internal/infrastructure/cache/port"
	"charla/internal/pkg/hub"
	"charla/internal/pkg/hub/presentation/controller"
)

// RegisterRoutes mounts the realtime endpoints under the given group.
func RegisterRoutes(g *gin.RouterGroup, h *hub.Hub, cache cacheport.Cache, logger *log.Logger) {
	socketCtl := controller.NewSocketController(h.Gateway, logger)
	presenceCtl := controller.NewGetPresenceController(cache)

	// GET /api/v1/chat/ws?token=... -> websocket session
	g.GET("/chat/ws", socketCtl.Handle())

	// GET /api/v1/presence/:userId -> cached presence snapshot
	g.GET("/presence/:userId", presenceCtl.Handle())
}
