package http

import (
	"os"

	"github.com/gin-gonic/gin"

	"charla/internal/pkg/call/presentation/controller"
)

// RegisterRoutes mounts call-related HTTP endpoints under the given group.
func RegisterRoutes(g *gin.RouterGroup) {
	turnCtl := controller.NewTurnCredentialsController(os.Getenv("TURN_HOST"), os.Getenv("TURN_SHARED_SECRET"))

	// POST /api/v1/calls/turn-credentials -> ephemeral ICE server list
	g.POST("/calls/turn-credentials", turnCtl.Handle())
}
