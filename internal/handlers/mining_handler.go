package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"miningpad/internal/auth"
	"miningpad/internal/services"
)

// MiningHandler handles mining session endpoints
type MiningHandler struct {
	miningService *services.MiningService
}

// NewMiningHandler creates a new MiningHandler
func NewMiningHandler(miningService *services.MiningService) *MiningHandler {
	return &MiningHandler{miningService: miningService}
}

// StartMining begins a new mining session.
// POST /api/mining/start
func (h *MiningHandler) StartMining(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	session, err := h.miningService.StartSession(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, "Mining started", gin.H{"session": session})
}

// GetStatus returns the active session and the amount accrued so far.
// GET /api/mining/status
func (h *MiningHandler) GetStatus(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	session, accrued, err := h.miningService.GetActiveSession(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, "OK", gin.H{
		"session": session,
		"accrued": accrued,
	})
}

// ClaimMining pays out the active session and closes it.
// POST /api/mining/claim
func (h *MiningHandler) ClaimMining(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	session, transaction, err := h.miningService.ClaimSession(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, "Mining reward claimed", gin.H{
		"session":     session,
		"earned":      session.Earned,
		"transaction": transaction,
	})
}
