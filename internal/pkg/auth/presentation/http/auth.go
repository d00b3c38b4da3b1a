package http

import (
	"github.com/gin-gonic/gin"

	cacheport "charla/internal/infrastructure/cache/port"
	"charla/internal/pkg/auth/application/usecase"
	"charla/internal/pkg/auth/presentation/controller"
	smsport "charla/internal/pkg/auth/sms/port"
	"charla/internal/pkg/auth/token"
)

// RegisterRoutes mounts the phone OTP endpoints under the given group.
func RegisterRoutes(g *gin.RouterGroup, cache cacheport.Cache, sms smsport.Sender, tokens *token.Manager) {
	startCtl := controller.NewStartPhoneSessionController(usecase.NewStartPhoneSessionUseCase(cache, sms))
	verifyCtl := controller.NewVerifyPhoneSessionController(usecase.NewVerifyPhoneSessionUseCase(cache, tokens))

	// POST /api/v1/auth/phone/start -> send OTP, returns sessionId
	g.POST("/auth/phone/start", startCtl.Handle())

	// POST /api/v1/auth/phone/verify -> check code, returns session token
	g.POST("/auth/phone/verify", verifyCtl.Handle())
}
