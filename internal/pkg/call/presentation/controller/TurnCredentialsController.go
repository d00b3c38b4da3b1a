package controller

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const turnCredentialTTL = 600 // seconds

// TurnCredentialsController issues ephemeral TURN credentials using the
// coturn shared-secret scheme: username is "<expiry>:ephemeral" and the
// credential is base64(hmac-sha1(secret, username)).
type TurnCredentialsController struct {
	host   string
	secret []byte
	now    func() time.Time
}

func NewTurnCredentialsController(host string, secret string) *TurnCredentialsController {
	return &TurnCredentialsController{host: host, secret: []byte(secret), now: time.Now}
}

type iceServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

func (ctl *TurnCredentialsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ctl.host == "" || len(ctl.secret) == 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "turn is not configured"})
			return
		}

		username, credential := ctl.credential()
		c.JSON(http.StatusOK, gin.H{
			"ttl": turnCredentialTTL,
			"iceServers": []iceServer{
				{URLs: []string{"stun:stun.l.google.com:19302"}},
				{URLs: []string{fmt.Sprintf("turn:%s:3478", ctl.host)}, Username: username, Credential: credential},
				{URLs: []string{fmt.Sprintf("turns:%s:5349", ctl.host)}, Username: username, Credential: credential},
			},
		})
	}
}

func (ctl *TurnCredentialsController) credential() (username string, credential string) {
	expiry := ctl.now().Unix() + turnCredentialTTL
	username = fmt.Sprintf("%d:ephemeral", expiry)
	mac := hmac.New(sha1.New, ctl.secret)
	mac.Write([]byte(username))
	return username, base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
