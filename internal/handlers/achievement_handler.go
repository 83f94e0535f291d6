package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"miningpad/internal/auth"
	"miningpad/internal/services"
)

// AchievementHandler handles achievement listing and claim endpoints
type AchievementHandler struct {
	achievementService *services.AchievementService
	walletService      *services.WalletService
}

// NewAchievementHandler creates a new AchievementHandler
func NewAchievementHandler(achievementService *services.AchievementService, walletService *services.WalletService) *AchievementHandler {
	return &AchievementHandler{achievementService: achievementService, walletService: walletService}
}

// ListAchievements returns all active achievements with the caller's progress.
// GET /api/achievements
func (h *AchievementHandler) ListAchievements(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	achievements, err := h.achievementService.ListWithProgress(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, "OK", gin.H{"achievements": achievements, "count": len(achievements)})
}

// UpdateProgress reports the caller's progress on an achievement.
// POST /api/achievements/:achievementId/progress
func (h *AchievementHandler) UpdateProgress(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	achievementID, err := strconv.ParseUint(c.Param("achievementId"), 10, 32)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid achievement id")
		return
	}

	var req struct {
		Progress int    `json:"progress" binding:"required,min=1"`
		Source   string `json:"source"`
		Details  string `json:"details"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if req.Source == "" {
		req.Source = "manual"
	}

	record, err := h.achievementService.UpdateProgress(userID, uint(achievementID), req.Progress, req.Source, req.Details)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, "Progress updated", gin.H{"achievement": record})
}

// ClaimReward claims a completed achievement's reward.
// POST /api/achievements/:achievementId/claim
func (h *AchievementHandler) ClaimReward(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	achievementID, err := strconv.ParseUint(c.Param("achievementId"), 10, 32)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid achievement id")
		return
	}

	transaction, err := h.achievementService.ClaimReward(userID, uint(achievementID), h.walletService)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, "Reward claimed", gin.H{
		"reward":      transaction.Amount,
		"transaction": transaction,
	})
}

// GetProgressHistory returns the caller's progress history for an achievement.
// GET /api/achievements/:achievementId/history
func (h *AchievementHandler) GetProgressHistory(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	achievementID, err := strconv.ParseUint(c.Param("achievementId"), 10, 32)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid achievement id")
		return
	}

	entries, err := h.achievementService.GetProgressHistory(userID, uint(achievementID))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, "OK", gin.H{"history": entries, "count": len(entries)})
}
