package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sachtalks/sachtalks-api/internal/config"
	"github.com/sachtalks/sachtalks-api/internal/sessions"
	"github.com/sachtalks/sachtalks-api/internal/tokens"
	"github.com/sachtalks/sachtalks-api/pkg/logger"
	"github.com/sachtalks/sachtalks-api/pkg/middleware"
)

// AdminSubject is the only principal the shared-password gate knows about.
const AdminSubject = "admin"

// LoginRequest carries the shared admin password.
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

type sessionRequest struct {
	SessionToken string `json:"session_token" binding:"required"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	password  string
	secret    string
	ttl       time.Duration
	sessions  *sessions.Service
	blacklist *sessions.Blacklist
}

func NewAuthHandler(cfg *config.Config, s *sessions.Service, bl *sessions.Blacklist) *AuthHandler {
	ttl := cfg.JWT.AccessTokenTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &AuthHandler{password: cfg.Admin.Password, secret: cfg.JWT.Secret, ttl: ttl, sessions: s, blacklist: bl}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg gin.IRouter) {
	a := rg.Group("/auth")
	a.POST("/login", h.Login)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", h.Logout)
}

func (h *AuthHandler) issue(c *gin.Context, sess *sessions.Session, status int) {
	access, err := tokens.GenerateAccessToken(h.secret, sess.Sub, sess.ID, h.ttl)
	if err != nil {
		logger.Errorf("failed to create access token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to create access token"})
		return
	}
	c.JSON(status, gin.H{
		"success":      true,
		"accessToken":  access,
		"sessionToken": sess.ID,
		"expiresIn":    int(h.ttl.Seconds()),
		"idleTimeout":  int(h.sessions.IdleTimeout().Seconds()),
	})
}

// Login compares the password against ADMIN_PASSWORD and opens a session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "password is required"})
		return
	}
	if h.password == "" || h.secret == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "ADMIN_PASSWORD or JWT_SECRET is not configured"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.password)) != 1 {
		logger.Warnf("admin login rejected from %s", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Incorrect password"})
		return
	}
	sess, err := h.sessions.Create(c.Request.Context(), AdminSubject)
	if err != nil {
		logger.Errorf("failed to create session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to create session"})
		return
	}
	h.issue(c, sess, http.StatusOK)
}

// Refresh trades a live session token for a new access token and slides the session.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "session_token is required"})
		return
	}
	sess, err := h.sessions.Validate(c.Request.Context(), req.SessionToken)
	if err != nil {
		logger.Errorf("session validation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "validation failed"})
		return
	}
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "session expired"})
		return
	}
	h.issue(c, sess, http.StatusOK)
}

// Logout ends the session and blacklists the bearer token when one is supplied.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "session_token is required"})
		return
	}
	if at, ok := middleware.BearerToken(c); ok {
		if exp, err := tokens.ExpiresAt(at); err == nil {
			if err := h.blacklist.Add(c.Request.Context(), at, time.Until(exp)); err != nil {
				logger.Errorf("failed to blacklist access token: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to blacklist access token"})
				return
			}
		}
	}
	if err := h.sessions.Delete(c.Request.Context(), req.SessionToken); err != nil {
		logger.Errorf("failed to remove session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to remove session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "logged out"})
}
