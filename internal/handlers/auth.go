package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"gatechat/internal/auth"
	"gatechat/internal/middleware"
	"gatechat/internal/models"
	"gatechat/internal/services"
)

// CookieConfig controls the session cookies.
type CookieConfig struct {
	UserName  string
	AdminName string
	MaxAge    int
	Secure    bool
}

// AuthHandler serves signup, login and the access-request gate.
type AuthHandler struct {
	auth    *services.AuthService
	access  *services.AccessService
	cookies CookieConfig
	logger  *slog.Logger
}

func NewAuthHandler(authSvc *services.AuthService, access *services.AccessService, cookies CookieConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: authSvc, access: access, cookies: cookies, logger: logger}
}

type sessionResponse struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// Signup handles POST /auth/signup.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req struct {
		FullName string `json:"full_name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := h.auth.Signup(c.Request.Context(), services.SignupInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.setCookie(c, h.cookies.UserName, token)
	c.JSON(http.StatusCreated, sessionResponse{User: user, Token: token})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.setCookie(c, h.cookies.UserName, token)
	c.JSON(http.StatusOK, sessionResponse{User: user, Token: token})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.clearCookie(c, h.cookies.UserName)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Check handles GET /auth/check.
func (h *AuthHandler) Check(c *gin.Context) {
	user, err := h.auth.Me(c.Request.Context(), c.GetInt(middleware.UserIDKey))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfile handles PUT /auth/update-profile.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		ProfilePic string `json:"profile_pic"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.auth.UpdateProfilePic(c.Request.Context(), c.GetInt(middleware.UserIDKey), req.ProfilePic)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// RequestAccess handles POST /auth/request.
func (h *AuthHandler) RequestAccess(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := h.access.Request(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// RequestedUsers handles GET /auth/requested-users.
func (h *AuthHandler) RequestedUsers(c *gin.Context) {
	reqs, err := h.access.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs})
}

// AcceptRequest handles POST /auth/accept-request?id=<email>.
func (h *AuthHandler) AcceptRequest(c *gin.Context) {
	accepted, err := h.access.Accept(c.Request.Context(), c.Query("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, accepted)
}

// AdminLogin handles POST /auth/admin-login.
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, err := h.auth.AdminLogin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.setCookie(c, h.cookies.AdminName, token)
	c.JSON(http.StatusOK, gin.H{"email": services.NormalizeEmail(req.Email), "token": token})
}

// AdminLogout handles POST /auth/admin-logout.
func (h *AuthHandler) AdminLogout(c *gin.Context) {
	h.clearCookie(c, h.cookies.AdminName)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// CheckAdmin handles GET /auth/check-admin behind the admin guard.
func (h *AuthHandler) CheckAdmin(c *gin.Context) {
	claims, _ := c.Get(middleware.ClaimsKey)
	if cl, ok := claims.(*auth.Claims); ok {
		c.JSON(http.StatusOK, gin.H{"email": cl.Subject})
		return
	}
	c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) setCookie(c *gin.Context, name, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, token, h.cookies.MaxAge, "/", "", h.cookies.Secure, true)
}

func (h *AuthHandler) clearCookie(c *gin.Context, name string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, "", -1, "/", "", h.cookies.Secure, true)
}
