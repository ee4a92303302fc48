package handler

import (
	"net/http"
	"strings"
	"time"

	"film-resolver/app/auth"
	"film-resolver/app/config"

	"github.com/gin-gonic/gin"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	config     *config.Config
	jwtService *auth.JWTService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		config:     cfg,
		jwtService: auth.NewJWTService(cfg),
	}
}

// TokenResponse 令牌响应结构
type TokenResponse struct {
	Token    string `json:"token"`
	ExpireAt int64  `json:"expire_at"`
}

// RefreshToken 刷新令牌，仅在令牌一小时内过期时签发新令牌
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || token == "" {
		fail(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
		return
	}

	newToken, err := h.jwtService.RefreshToken(token)
	if err != nil {
		fail(c, http.StatusUnauthorized, "刷新令牌失败: "+err.Error())
		return
	}

	success(c, TokenResponse{
		Token:    newToken,
		ExpireAt: time.Now().Add(h.jwtService.ExpireDuration()).Unix(),
	}, "刷新成功")
}
