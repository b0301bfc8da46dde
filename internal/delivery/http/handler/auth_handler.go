package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"vltd-dashboard/internal/backend"
	"vltd-dashboard/internal/middleware"
	"vltd-dashboard/internal/session"
	"vltd-dashboard/internal/tokenstore"
	appErrors "vltd-dashboard/pkg/errors"
	"vltd-dashboard/pkg/utils"
)

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

type AuthHandler struct {
	manager  *session.Manager
	sessions *session.Registry
	cookie   CookieConfig
}

func NewAuthHandler(manager *session.Manager, sessions *session.Registry, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{manager: manager, sessions: sessions, cookie: cookie}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	{
		auth.POST("/:role/login", h.Login)
		auth.POST("/:role/logout", h.Logout)
		auth.GET("/session", h.Session)
		auth.DELETE("/session", h.EndSession)
	}
}

type loginResponse struct {
	*backend.LoginResult
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Redirect     string    `json:"redirect,omitempty"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	role, err := tokenstore.ParseRole(c.Param("role"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Unknown role")
		return
	}

	var creds backend.Credentials
	if !bindJSON(c, &creds) {
		return
	}

	s := middleware.GetSession(c)
	if s == nil {
		s = h.sessions.Start()
	}

	result, err := login(c.Request.Context(), s.Client, role, creds)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	s.SetAccount(role, result.User)

	token, expiresAt, err := h.manager.Issue(s.ID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to start session")
		return
	}
	h.setCookie(c, token, int(h.manager.Expiry().Seconds()))

	resp := loginResponse{LoginResult: result, SessionToken: token, ExpiresAt: expiresAt}
	if result.RequiresOnboarding {
		resp.Redirect = "onboarding"
	}
	utils.SuccessResponse(c, http.StatusOK, "Login successful", resp)
}

func login(ctx context.Context, client *backend.Client, role tokenstore.Role, creds backend.Credentials) (*backend.LoginResult, error) {
	switch role {
	case tokenstore.RoleManufacturer:
		return client.Manufacturer().Login(ctx, creds)
	case tokenstore.RoleDistributor:
		return client.Distributor().Login(ctx, creds)
	case tokenstore.RoleRFC:
		return client.RFC().Login(ctx, creds)
	case tokenstore.RoleAdmin:
		return client.Admin().Login(ctx, creds)
	default:
		return nil, appErrors.Validation("Unknown role")
	}
}

func (h *AuthHandler) Logout(c *gin.Context) {
	role, err := tokenstore.ParseRole(c.Param("role"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Unknown role")
		return
	}

	s := middleware.GetSession(c)
	if s == nil {
		utils.SuccessResponse(c, http.StatusOK, "Logged out", nil)
		return
	}

	switch role {
	case tokenstore.RoleManufacturer:
		s.Client.Manufacturer().Logout()
	case tokenstore.RoleDistributor:
		s.Client.Distributor().Logout()
	case tokenstore.RoleRFC:
		s.Client.RFC().Logout()
	case tokenstore.RoleAdmin:
		s.Client.Admin().Logout()
	}
	s.Logout(role)

	utils.SuccessResponse(c, http.StatusOK, "Logged out", nil)
}

type sessionInfo struct {
	ID       string                              `json:"id"`
	Roles    []tokenstore.Role                   `json:"roles"`
	Accounts map[tokenstore.Role]backend.Account `json:"accounts"`
}

// Session reports which roles the browser is logged in as.
func (h *AuthHandler) Session(c *gin.Context) {
	s := middleware.GetSession(c)
	if s == nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Please log in first")
		return
	}

	info := sessionInfo{ID: s.ID, Roles: s.Tokens.Active(), Accounts: make(map[tokenstore.Role]backend.Account)}
	for _, role := range info.Roles {
		if account, ok := s.Account(role); ok {
			info.Accounts[role] = account
		}
	}
	utils.SuccessResponse(c, http.StatusOK, "Session retrieved successfully", info)
}

// EndSession logs out of every role and drops the cookie.
func (h *AuthHandler) EndSession(c *gin.Context) {
	if s := middleware.GetSession(c); s != nil {
		h.sessions.End(s.ID)
	}
	h.setCookie(c, "", -1)
	utils.SuccessResponse(c, http.StatusOK, "Session ended", nil)
}

func (h *AuthHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, value, maxAge, "/", "", h.cookie.Secure, true)
}
