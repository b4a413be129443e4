package auth

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"merchantpay/internal/middleware"
	"merchantpay/internal/pkg/response"
	"merchantpay/internal/pkg/validator"
	"merchantpay/internal/router"
)

const (
	accessCookie  = "accessToken"
	refreshCookie = "refreshToken"
	expiryCookie  = "tokenExpiry"
)

// CookieConfig controls the session cookies written next to the JSON body.
type CookieConfig struct {
	Secure   bool
	SameSite http.SameSite
	Path     string
	Domain   string
}

// Handler manages all HTTP interactions for authentication
type Handler struct {
	service *Service
	cookies CookieConfig
	metrics OutcomeRecorder
}

func NewHandler(service *Service, cookies CookieConfig, metrics OutcomeRecorder) *Handler {
	if cookies.Path == "" {
		cookies.Path = "/"
	}
	if cookies.SameSite == 0 {
		cookies.SameSite = http.SameSiteLaxMode
	}
	return &Handler{service: service, cookies: cookies, metrics: metrics}
}

func (h *Handler) Routes() []router.Route {
	return []router.Route{
		{Method: http.MethodPost, Path: "/auth/login", Public: true, Handler: h.Login},
		{Method: http.MethodPost, Path: "/auth/refresh", Public: true, Handler: h.Refresh},
		{Method: http.MethodPost, Path: "/auth/logout", Public: true, Handler: h.Logout},
		{Method: http.MethodPost, Path: "/auth/logout-all", Handler: h.LogoutAll},
		{Method: http.MethodGet, Path: "/auth/me", Handler: h.GetMe},
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !validator.BindJSON(c, &req) {
		return
	}

	session, err := h.service.Login(c.Request.Context(), req.Email, req.Password, clientMeta(c))
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.recordLogin("invalid_credentials")
			response.Error(c, http.StatusUnauthorized, response.CodeInvalidCredentials, "Email or password is incorrect")
			return
		}
		h.recordLogin("error")
		log.Error().Err(err).Msg("login failed")
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Failed to login")
		return
	}

	h.recordLogin("success")
	h.setSessionCookies(c, session)
	c.JSON(http.StatusOK, LoginResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    int64(h.service.AccessTTL() / time.Second),
		User:         NewUserPublic(session.User),
	})
}

// Refresh reads the token from the body and falls back to the refreshToken cookie.
func (h *Handler) Refresh(c *gin.Context) {
	raw := h.refreshTokenFrom(c)
	if raw == "" {
		h.recordRefresh("invalid")
		h.clearSessionCookies(c)
		response.Error(c, http.StatusUnauthorized, response.CodeInvalidRefreshToken, "Refresh token is invalid or expired")
		return
	}

	session, err := h.service.Refresh(c.Request.Context(), raw, clientMeta(c))
	if err != nil {
		h.clearSessionCookies(c)
		if errors.Is(err, ErrInvalidRefreshToken) {
			h.recordRefresh("invalid")
			response.Error(c, http.StatusUnauthorized, response.CodeInvalidRefreshToken, "Refresh token is invalid or expired")
			return
		}
		h.recordRefresh("error")
		log.Error().Err(err).Msg("refresh failed")
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Failed to refresh session")
		return
	}

	h.recordRefresh("success")
	h.setSessionCookies(c, session)
	c.JSON(http.StatusOK, RefreshResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    int64(h.service.AccessTTL() / time.Second),
	})
}

// Logout always answers 200; a storage failure is only logged.
func (h *Handler) Logout(c *gin.Context) {
	raw := h.refreshTokenFrom(c)
	if err := h.service.Logout(c.Request.Context(), raw); err != nil {
		log.Error().Err(err).Msg("logout: revoke refresh token")
	}
	h.clearSessionCookies(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) LogoutAll(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)
	if err := h.service.LogoutAll(c.Request.Context(), id.UserID); err != nil {
		log.Error().Err(err).Int64("user_id", id.UserID).Msg("logout-all failed")
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Failed to logout")
		return
	}
	h.clearSessionCookies(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) GetMe(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)
	user, err := h.service.GetCurrentUser(c.Request.Context(), id.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeNotFound, "User not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Failed to load user")
		return
	}
	sessions, err := h.service.ActiveSessions(c.Request.Context(), user.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("count active sessions")
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Failed to load user")
		return
	}
	response.Success(c, http.StatusOK, MeResponse{UserPublic: NewUserPublic(user), ActiveSessions: sessions})
}

func (h *Handler) refreshTokenFrom(c *gin.Context) string {
	var req RefreshRequest
	if c.Request.ContentLength != 0 {
		_ = c.ShouldBindJSON(&req)
	}
	if v := strings.TrimSpace(req.RefreshToken); v != "" {
		return v
	}
	if v, err := c.Cookie(refreshCookie); err == nil {
		return strings.TrimSpace(v)
	}
	return ""
}

func (h *Handler) setSessionCookies(c *gin.Context, s *Session) {
	accessAge := int(h.service.AccessTTL() / time.Second)
	refreshAge := int(h.service.RefreshTTL() / time.Second)

	c.SetSameSite(h.cookies.SameSite)
	c.SetCookie(accessCookie, s.AccessToken, accessAge, "/", h.cookies.Domain, h.cookies.Secure, true)
	c.SetCookie(refreshCookie, s.RefreshToken, refreshAge, h.cookies.Path, h.cookies.Domain, h.cookies.Secure, true)
	c.SetCookie(expiryCookie, strconv.FormatInt(s.AccessExpiresAt.Unix(), 10), accessAge, "/", h.cookies.Domain, h.cookies.Secure, false)
}

func (h *Handler) clearSessionCookies(c *gin.Context) {
	c.SetSameSite(h.cookies.SameSite)
	c.SetCookie(accessCookie, "", -1, "/", h.cookies.Domain, h.cookies.Secure, true)
	c.SetCookie(refreshCookie, "", -1, h.cookies.Path, h.cookies.Domain, h.cookies.Secure, true)
	c.SetCookie(expiryCookie, "", -1, "/", h.cookies.Domain, h.cookies.Secure, false)
}

func (h *Handler) recordLogin(outcome string) {
	if h.metrics != nil {
		h.metrics.LoginOutcome(outcome)
	}
}

func (h *Handler) recordRefresh(outcome string) {
	if h.metrics != nil {
		h.metrics.RefreshOutcome(outcome)
	}
}

func clientMeta(c *gin.Context) ClientMeta {
	return ClientMeta{UserAgent: c.Request.UserAgent(), IP: c.ClientIP()}
}
