package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/party-booking/internal/middleware"
	"github.com/iliyamo/party-booking/internal/utils"
)

// AuthConfig is what the login endpoint needs from the configuration.
type AuthConfig struct {
	AdminUser         string
	AdminPasswordHash string
	JWTSecret         string
	AccessTTLMin      int
}

// AuthHandler issues admin access tokens.
type AuthHandler struct {
	cfg AuthConfig
}

func NewAuthHandler(cfg AuthConfig) *AuthHandler { return &AuthHandler{cfg: cfg} }

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login checks the admin credentials and returns a short-lived token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.cfg.AdminUser)) == 1
	passOK := utils.VerifyPassword(h.cfg.AdminPasswordHash, req.Password)
	if !userOK || !passOK {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.cfg.JWTSecret, h.cfg.AdminUser, middleware.RoleAdmin, h.cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"access": access})
}
