package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/parley-ai/parley/internal/config"
	"github.com/parley-ai/parley/internal/pkg/errcode"
	"github.com/parley-ai/parley/internal/pkg/jwt"
	"github.com/parley-ai/parley/internal/pkg/password"
	"github.com/parley-ai/parley/internal/pkg/response"
)

// AuthHandler implements the optional remote-access unlock. A single shared
// password (stored as a bcrypt hash in config) is exchanged for a bearer
// token; when no hash is configured the instance runs open.
type AuthHandler struct {
	cfg       config.AuthConfig
	jwtSecret []byte
}

func NewAuthHandler(cfg config.AuthConfig, jwtSecret []byte) *AuthHandler {
	return &AuthHandler{cfg: cfg, jwtSecret: jwtSecret}
}

func (h *AuthHandler) Enabled() bool {
	return h.cfg.PasswordHash != ""
}

type unlockRequest struct {
	Password string `json:"password"`
}

func (h *AuthHandler) Unlock(c *gin.Context) {
	if !h.Enabled() {
		response.Success(c, gin.H{"auth_required": false})
		return
	}
	var req unlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if err := password.Compare(h.cfg.PasswordHash, req.Password); err != nil {
		response.Error(c, errcode.ErrUnauthorized, "wrong password")
		return
	}
	ttl := time.Duration(h.cfg.TokenTTLHours) * time.Hour
	token, err := jwt.GenerateToken("owner", h.jwtSecret, ttl)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"auth_required": true,
		"token":         token,
		"expires_in":    int64(ttl.Seconds()),
	})
}

func (h *AuthHandler) Status(c *gin.Context) {
	response.Success(c, gin.H{"auth_required": h.Enabled()})
}
