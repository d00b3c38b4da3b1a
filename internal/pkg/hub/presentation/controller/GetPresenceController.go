package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	cacheport "charla/internal/infrastructure/cache/port"
	"charla/internal/pkg/hub"
)

// GetPresenceController answers last-seen queries from the cached presence
// snapshot. A user never seen by any hub process reads as offline.
type GetPresenceController struct {
	cache   cacheport.Cache
	timeout time.Duration
}

func NewGetPresenceController(cache cacheport.Cache) *GetPresenceController {
	return &GetPresenceController{cache: cache, timeout: 3 * time.Second}
}

func (h *GetPresenceController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("userId")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		defer cancel()

		raw, err := h.cache.Get(ctx, hub.PresenceKey(userID))
		switch {
		case err == nil:
			var snap hub.PresenceSnapshot
			if jsonErr := json.Unmarshal([]byte(raw), &snap); jsonErr != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"code": "server_error"})
				return
			}
			c.JSON(http.StatusOK, snap)
		case errors.Is(err, cacheport.ErrMiss):
			c.JSON(http.StatusOK, hub.PresenceSnapshot{UserID: userID, Online: false})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"code": "server_error"})
		}
	}
}
