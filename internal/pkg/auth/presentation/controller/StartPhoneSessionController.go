package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"charla/internal/pkg/auth/application/usecase"
)

// StartPhoneSessionController handles the OTP start endpoint only
// (one controller per endpoint).
type StartPhoneSessionController struct {
	uc      *usecase.StartPhoneSessionUseCase
	timeout time.Duration
}

func NewStartPhoneSessionController(uc *usecase.StartPhoneSessionUseCase) *StartPhoneSessionController {
	return &StartPhoneSessionController{uc: uc, timeout: 10 * time.Second}
}

type startPhoneRequest struct {
	Phone string `json:"phone" binding:"required"`
}

func (h *StartPhoneSessionController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req startPhoneRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		defer cancel()

		sessionID, err := h.uc.Execute(ctx, req.Phone)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"sessionId": sessionID})
		case errors.Is(err, usecase.ErrInvalidPhone):
			c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_phone"})
		case errors.Is(err, usecase.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"code": "rate_limited"})
		case errors.Is(err, usecase.ErrSMSDelivery):
			c.JSON(http.StatusInternalServerError, gin.H{"code": "sms_failed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"code": "server_error"})
		}
	}
}
