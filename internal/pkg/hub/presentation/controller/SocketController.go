package controller

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"charla/internal/pkg/hub"
)

const (
	maxFrameSize = 1 << 20 // 1 MiB
	pongWait     = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Cross-origin is enforced at the edge; the hub trusts the token, not
	// the Origin header.
	CheckOrigin: func(*http.Request) bool { return true },
}

// SocketController upgrades the HTTP request and hands the socket to the
// gateway, which runs the session until the peer goes away.
type SocketController struct {
	gateway *hub.Gateway
	logger  *log.Logger
}

func NewSocketController(gateway *hub.Gateway, logger *log.Logger) *SocketController {
	return &SocketController{gateway: gateway, logger: logger}
}

func (h *SocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		credential := c.Query("token")
		if credential == "" {
			header := c.GetHeader("Authorization")
			if trimmed := strings.TrimPrefix(header, "Bearer "); trimmed != header {
				credential = trimmed
			}
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error response.
			return
		}

		ws.SetReadLimit(maxFrameSize)
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(pongWait))
		})

		if err := h.gateway.HandleConnection(c.Request.Context(), ws, credential); err != nil {
			h.logger.Printf("websocket session from %s: %v", c.ClientIP(), err)
		}
	}
}
