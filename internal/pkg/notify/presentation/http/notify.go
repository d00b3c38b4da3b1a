package http

import (
	"github.com/gin-gonic/gin"

	"charla/internal/pkg/auth/token"
	repository "charla/internal/pkg/notify/persistence/repository/port"
	"charla/internal/pkg/notify/presentation/controller"
)

// RegisterRoutes mounts notification endpoints under the given group.
func RegisterRoutes(g *gin.RouterGroup, devices repository.DeviceRepository, tokens *token.Manager) {
	registerCtl := controller.NewRegisterDeviceController(devices, tokens)

	// POST /api/v1/notifications/register -> upsert a device push token
	g.POST("/notifications/register", registerCtl.Handle())
}
