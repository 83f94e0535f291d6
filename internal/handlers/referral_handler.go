package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"miningpad/internal/auth"
	"miningpad/internal/services"
)

// ReferralHandler handles referral code and stats endpoints
type ReferralHandler struct {
	referralService *services.ReferralService
}

// NewReferralHandler creates a new ReferralHandler
func NewReferralHandler(referralService *services.ReferralService) *ReferralHandler {
	return &ReferralHandler{referralService: referralService}
}

// GetInfo returns the caller's code, stats and referral list.
// GET /api/referrals/info
func (h *ReferralHandler) GetInfo(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	info, err := h.referralService.GetReferralInfo(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, "OK", info)
}

// GenerateCode gets or creates the caller's referral code.
// POST /api/referrals/generate-code
func (h *ReferralHandler) GenerateCode(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	code, err := h.referralService.GetUserReferralCode(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, "OK", gin.H{"code": code.Code})
}

// ValidateCode checks whether a referral code can be used.
// GET /api/referrals/validate/:code
func (h *ReferralHandler) ValidateCode(c *gin.Context) {
	code, err := h.referralService.ValidateCode(c.Param("code"))
	if err != nil {
		respondOK(c, "Code is invalid", gin.H{"valid": false})
		return
	}

	respondOK(c, "Code is valid", gin.H{
		"valid":      true,
		"referrerId": code.UserID,
	})
}
