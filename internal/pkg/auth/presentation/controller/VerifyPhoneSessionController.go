package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"charla/internal/pkg/auth/application/usecase"
)

// VerifyPhoneSessionController handles the OTP verify endpoint only.
type VerifyPhoneSessionController struct {
	uc      *usecase.VerifyPhoneSessionUseCase
	timeout time.Duration
}

func NewVerifyPhoneSessionController(uc *usecase.VerifyPhoneSessionUseCase) *VerifyPhoneSessionController {
	return &VerifyPhoneSessionController{uc: uc, timeout: 5 * time.Second}
}

type verifyPhoneRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	Code      string `json:"code" binding:"required"`
}

func (h *VerifyPhoneSessionController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req verifyPhoneRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		defer cancel()

		res, err := h.uc.Execute(ctx, req.SessionID, req.Code)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"ok": true, "phone": res.Phone, "token": res.SessionToken})
		case errors.Is(err, usecase.ErrInvalidSession):
			c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_session"})
		case errors.Is(err, usecase.ErrInvalidCode):
			c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_code"})
		case errors.Is(err, usecase.ErrTooManyAttempts):
			c.JSON(http.StatusTooManyRequests, gin.H{"code": "too_many_attempts"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"code": "server_error"})
		}
	}
}
