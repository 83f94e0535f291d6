package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"miningpad/internal/auth"
	"miningpad/internal/services"
	"miningpad/pkg/apperr"
)

// WalletHandler handles balance, transfer, exchange and history endpoints
type WalletHandler struct {
	walletService *services.WalletService
}

// NewWalletHandler creates a new WalletHandler
func NewWalletHandler(walletService *services.WalletService) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

// GetBalance returns the caller's balance buckets and current address.
// GET /api/wallet/balance
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	wallet, err := h.walletService.GetWalletByUserID(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, "OK", gin.H{
		"totalBalance":       wallet.TotalBalance,
		"sendableBalance":    wallet.SendableBalance,
		"nonSendableBalance": wallet.NonSendableBalance,
		"pendingBalance":     wallet.PendingBalance,
		"currentAddress":     wallet.CurrentAddress,
	})
}

// Send transfers tokens to a recipient located by wallet address.
// POST /api/wallet/send
func (h *WalletHandler) Send(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		ToAddress   string `json:"toAddress" binding:"required"`
		Amount      string `json:"amount" binding:"required"`
		Description string `json:"description"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondServiceError(c, apperr.ErrInvalidAmount)
		return
	}

	transaction, err := h.walletService.Transfer(userID, req.ToAddress, "", amount, req.Description)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, "Transfer successful", gin.H{"transaction": transaction})
}

// SendByEmail transfers tokens to a recipient located by account email.
// POST /api/wallet/send-by-email
func (h *WalletHandler) SendByEmail(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		ToEmail     string `json:"toEmail" binding:"required,email"`
		Amount      string `json:"amount" binding:"required"`
		Description string `json:"description"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondServiceError(c, apperr.ErrInvalidAmount)
		return
	}

	transaction, err := h.walletService.Transfer(userID, "", req.ToEmail, amount, req.Description)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, "Transfer successful", gin.H{"transaction": transaction})
}

// Exchange moves tokens between the sendable and non-sendable buckets.
// POST /api/wallet/exchange
func (h *WalletHandler) Exchange(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		Amount   string `json:"amount" binding:"required"`
		FromType string `json:"fromType" binding:"required"`
		ToType   string `json:"toType" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondServiceError(c, apperr.ErrInvalidAmount)
		return
	}

	wallet, err := h.walletService.Exchange(userID, amount,
		services.BalanceBucket(req.FromType), services.BalanceBucket(req.ToType))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, "Exchange successful", gin.H{
		"totalBalance":       wallet.TotalBalance,
		"sendableBalance":    wallet.SendableBalance,
		"nonSendableBalance": wallet.NonSendableBalance,
	})
}

// GetTransactions returns the caller's paginated transaction history.
// GET /api/wallet/transactions?page&limit
func (h *WalletHandler) GetTransactions(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	history, err := h.walletService.GetTransactions(userID, page, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, "OK", history)
}
