package v1

import (
	"log"

	"github.com/gin-gonic/gin"

	cacheport "charla/internal/infrastructure/cache/port"
	authhttp "charla/internal/pkg/auth/presentation/http"
	smsport "charla/internal/pkg/auth/sms/port"
	"charla/internal/pkg/auth/token"
	callhttp "charla/internal/pkg/call/presentation/http"
	"charla/internal/pkg/hub"
	hubhttp "charla/internal/pkg/hub/presentation/http"
	repository "charla/internal/pkg/notify/persistence/repository/port"
	notifyhttp "charla/internal/pkg/notify/presentation/http"
)

// Deps carries the shared collaborators the v1 routes need.
type Deps struct {
	Cache   cacheport.Cache
	SMS     smsport.Sender
	Tokens  *token.Manager
	Devices repository.DeviceRepository
	Hub     *hub.Hub
	Logger  *log.Logger
}

// RegisterRoutes mounts all version 1 API routes under /api/v1.
func RegisterRoutes(r *gin.Engine, d Deps) {
	v1 := r.Group("/api/v1")
	authhttp.RegisterRoutes(v1, d.Cache, d.SMS, d.Tokens)
	notifyhttp.RegisterRoutes(v1, d.Devices, d.Tokens)
	callhttp.RegisterRoutes(v1)
	hubhttp.RegisterRoutes(v1, d.Hub, d.Cache, d.Logger)
}
