package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"miningpad/internal/auth"
	"miningpad/internal/services"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates a new account and returns a token pair.
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Username     string `json:"username" binding:"required,min=3,max=50"`
		Email        string `json:"email" binding:"required,email"`
		Password     string `json:"password" binding:"required,min=8"`
		ReferralCode string `json:"referralCode"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.authService.Register(req.Username, req.Email, req.Password, req.ReferralCode)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to generate token")
		return
	}

	refresh, err := h.authService.IssueRefreshToken(user.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to issue refresh token")
		return
	}

	respondCreated(c, "Registration successful", gin.H{
		"user":         user,
		"token":        token,
		"refreshToken": refresh.Token,
	})
}

// Login authenticates by email and password.
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to generate token")
		return
	}

	refresh, err := h.authService.IssueRefreshToken(user.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to issue refresh token")
		return
	}

	respondOK(c, "Login successful", gin.H{
		"user":         user,
		"token":        token,
		"refreshToken": refresh.Token,
	})
}

// RefreshToken rotates a valid refresh token into a fresh token pair.
// POST /api/auth/refresh-token
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	user, refresh, err := h.authService.RotateRefreshToken(req.RefreshToken)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to generate token")
		return
	}

	respondOK(c, "Token refreshed", gin.H{
		"token":        token,
		"refreshToken": refresh.Token,
	})
}

// Logout revokes the supplied refresh token.
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = c.ShouldBindJSON(&req)

	if req.RefreshToken != "" {
		if err := h.authService.RevokeRefreshToken(req.RefreshToken); err != nil {
			respondError(c, http.StatusInternalServerError, "failed to revoke token")
			return
		}
	}

	respondOK(c, "Successfully logged out", nil)
}

// GetMe returns the currently authenticated user's profile.
// GET /api/auth/me
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.authService.GetUserByID(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, "OK", gin.H{"user": user})
}
