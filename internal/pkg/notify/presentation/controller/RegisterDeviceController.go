package controller

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"charla/internal/pkg/auth/token"
	notify "charla/internal/pkg/notify/domain"
	repository "charla/internal/pkg/notify/persistence/repository/port"
)

// RegisterDeviceController handles push-token registration. The caller must
// present the session token minted by the OTP flow.
type RegisterDeviceController struct {
	devices repository.DeviceRepository
	tokens  *token.Manager
	timeout time.Duration
}

func NewRegisterDeviceController(devices repository.DeviceRepository, tokens *token.Manager) *RegisterDeviceController {
	return &RegisterDeviceController{devices: devices, tokens: tokens, timeout: 5 * time.Second}
}

type registerDeviceRequest struct {
	Token      string `json:"token" binding:"required"`
	DeviceID   string `json:"deviceId" binding:"required"`
	Platform   string `json:"platform"`
	AppVersion string `json:"appVersion"`
}

func (h *RegisterDeviceController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := h.authenticate(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"code": "unauthorized"})
			return
		}

		var req registerDeviceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_token"})
			return
		}
		platform := req.Platform
		if platform == "" {
			platform = "web"
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		defer cancel()

		err := h.devices.Upsert(ctx, notify.Device{
			UserID:     userID,
			DeviceID:   req.DeviceID,
			Token:      req.Token,
			Platform:   platform,
			UserAgent:  c.GetHeader("User-Agent"),
			AppVersion: req.AppVersion,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": "server_error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "updated": true})
	}
}

func (h *RegisterDeviceController) authenticate(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	raw := strings.TrimPrefix(header, "Bearer ")
	if raw == "" || raw == header {
		return "", false
	}
	userID, err := h.tokens.Verify(c.Request.Context(), raw)
	if err != nil {
		return "", false
	}
	return userID, true
}
