package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"miningpad/internal/models"
	"miningpad/internal/utils"
	"miningpad/pkg/apperr"
	"miningpad/pkg/logger"
)

// BalanceBucket names one of the two exchangeable wallet buckets
type BalanceBucket string

const (
	BucketSendable    BalanceBucket = "sendable"
	BucketNonSendable BalanceBucket = "nonSendable"
)

// WalletService handles wallet balances, transfers, exchanges and reward
// crediting. Every multi-row mutation runs inside a single database
// transaction so the ledger and the balances never diverge.
type WalletService struct {
	db                 *gorm.DB
	taskService        *TaskService
	achievementService *AchievementService
}

// NewWalletService creates a new WalletService. The progress services may be
// nil; they are only used for best-effort tracking after transfers and claims.
func NewWalletService(db *gorm.DB, taskService *TaskService, achievementService *AchievementService) *WalletService {
	return &WalletService{db: db, taskService: taskService, achievementService: achievementService}
}

// CreateWallet creates a wallet for a new user with a generated default
// address and the signup bonus credited to the non-sendable bucket. Runs
// inside the caller's transaction.
func (s *WalletService) CreateWallet(tx *gorm.DB, userID uint, signupBonus decimal.Decimal) (*models.Wallet, error) {
	address, err := utils.GenerateWalletAddress()
	if err != nil {
		return nil, fmt.Errorf("failed to generate address: %w", err)
	}

	wallet := models.Wallet{
		UserID:             userID,
		NonSendableBalance: signupBonus,
		CurrentAddress:     address,
	}
	wallet.RecomputeTotal()

	if err := tx.Create(&wallet).Error; err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	walletAddress := models.WalletAddress{
		WalletID:  wallet.ID,
		Address:   address,
		Label:     "Primary",
		IsDefault: true,
	}
	if err := tx.Create(&walletAddress).Error; err != nil {
		return nil, fmt.Errorf("failed to create wallet address: %w", err)
	}

	if signupBonus.IsPositive() {
		bonusTx := models.Transaction{
			Reference:   uuid.NewString(),
			Type:        models.TxTypeBonus,
			Amount:      signupBonus,
			ToUserID:    &userID,
			Status:      models.TxStatusCompleted,
			Description: "Signup bonus",
		}
		if err := tx.Create(&bonusTx).Error; err != nil {
			return nil, fmt.Errorf("failed to record signup bonus: %w", err)
		}
	}

	return &wallet, nil
}

// GetWalletByUserID retrieves a user's wallet
func (s *WalletService) GetWalletByUserID(userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := s.db.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

// Transfer moves amount from the sender's sendable balance to the recipient's.
// The recipient is located by wallet address or by email, whichever is set.
// The ledger entry and both balance mutations commit atomically; the debit is
// re-checked inside the transaction so two concurrent transfers cannot
// overspend the wallet.
func (s *WalletService) Transfer(senderID uint, toAddress, toEmail string, amount decimal.Decimal, description string) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, apperr.ErrInvalidAmount
	}

	senderWallet, err := s.GetWalletByUserID(senderID)
	if err != nil {
		return nil, err
	}

	if amount.GreaterThan(senderWallet.SendableBalance) {
		return nil, apperr.ErrInsufficientFunds
	}

	recipient, err := s.resolveRecipient(toAddress, toEmail)
	if err != nil {
		return nil, err
	}

	if recipient.ID == senderID {
		return nil, apperr.ErrSelfTransfer
	}

	var recipientWallet models.Wallet
	if err := s.db.Where("user_id = ?", recipient.ID).First(&recipientWallet).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrWalletNotFound
		}
		return nil, err
	}

	var sender models.User
	if err := s.db.First(&sender, senderID).Error; err != nil {
		return nil, apperr.ErrUserNotFound
	}

	if description == "" {
		description = fmt.Sprintf("Transfer from %s to %s", sender.Username, recipient.Username)
	}

	recipientID := recipient.ID
	transaction := models.Transaction{
		Reference:   uuid.NewString(),
		Type:        models.TxTypeSend,
		Amount:      amount,
		FromUserID:  &senderID,
		ToUserID:    &recipientID,
		Status:      models.TxStatusCompleted,
		Description: description,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Guarded debit: the balance condition is re-evaluated by the
		// database, so a concurrent transfer that already drained the
		// wallet makes this a no-op instead of an overspend.
		res := tx.Model(&models.Wallet{}).
			Where("user_id = ? AND sendable_balance >= ?", senderID, amount).
			Updates(map[string]interface{}{
				"sendable_balance": gorm.Expr("sendable_balance - ?", amount),
				"total_balance":    gorm.Expr("total_balance - ?", amount),
				"total_sent":       gorm.Expr("total_sent + ?", amount),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrInsufficientFunds
		}

		if err := tx.Model(&models.Wallet{}).
			Where("user_id = ?", recipientID).
			Updates(map[string]interface{}{
				"sendable_balance": gorm.Expr("sendable_balance + ?", amount),
				"total_balance":    gorm.Expr("total_balance + ?", amount),
				"total_received":   gorm.Expr("total_received + ?", amount),
			}).Error; err != nil {
			return err
		}

		return tx.Create(&transaction).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("Transfer completed: %s from user %d to user %d", amount, senderID, recipientID)

	// Best-effort progress tracking; a failure here must never surface to
	// the caller or undo the transfer.
	s.TrackProgress(senderID, "transfer", "transfer")

	return &transaction, nil
}

// resolveRecipient finds the recipient user by wallet address or email
func (s *WalletService) resolveRecipient(toAddress, toEmail string) (*models.User, error) {
	var user models.User

	if toAddress != "" {
		var wallet models.Wallet
		if err := s.db.Where("current_address = ?", toAddress).First(&wallet).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, apperr.ErrUserNotFound
			}
			return nil, err
		}
		if err := s.db.First(&user, wallet.UserID).Error; err != nil {
			return nil, apperr.ErrUserNotFound
		}
		return &user, nil
	}

	if err := s.db.Where("email = ?", toEmail).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// TrackProgress bumps task and achievement progress in the given category by
// one. Errors are logged and swallowed; trackers never fail the operation that
// drove them.
func (s *WalletService) TrackProgress(userID uint, category, source string) {
	if s.taskService != nil {
		if err := s.taskService.AdvanceCategoryProgress(userID, category, 1, source); err != nil {
			logger.Warnf("failed to track %s task progress for user %d: %v", category, userID, err)
		}
	}
	if s.achievementService != nil {
		if err := s.achievementService.AdvanceCategoryProgress(userID, category, 1, source); err != nil {
			logger.Warnf("failed to track %s achievement progress for user %d: %v", category, userID, err)
		}
	}
}

// Exchange moves amount between the sendable and non-sendable buckets of one
// wallet. No ledger entry is written; the exchange is invisible in history.
func (s *WalletService) Exchange(userID uint, amount decimal.Decimal, fromType, toType BalanceBucket) (*models.Wallet, error) {
	if !amount.IsPositive() {
		return nil, apperr.ErrInvalidAmount
	}
	if fromType == toType {
		return nil, apperr.ErrSameBucket
	}
	if (fromType != BucketSendable && fromType != BucketNonSendable) ||
		(toType != BucketSendable && toType != BucketNonSendable) {
		return nil, apperr.ErrSameBucket
	}

	fromColumn := "sendable_balance"
	toColumn := "non_sendable_balance"
	if fromType == BucketNonSendable {
		fromColumn = "non_sendable_balance"
		toColumn = "sendable_balance"
	}

	wallet, err := s.GetWalletByUserID(userID)
	if err != nil {
		return nil, err
	}

	source := wallet.SendableBalance
	if fromType == BucketNonSendable {
		source = wallet.NonSendableBalance
	}
	if amount.GreaterThan(source) {
		return nil, apperr.ErrInsufficientFunds
	}

	res := s.db.Model(&models.Wallet{}).
		Where(fmt.Sprintf("user_id = ? AND %s >= ?", fromColumn), userID, amount).
		Updates(map[string]interface{}{
			fromColumn: gorm.Expr(fromColumn+" - ?", amount),
			toColumn:   gorm.Expr(toColumn+" + ?", amount),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperr.ErrInsufficientFunds
	}

	return s.GetWalletByUserID(userID)
}

// CreditReward credits amount to the given bucket of a user's wallet and
// writes one ledger entry of the given type, atomically. Mining credits also
// bump the lifetime total_mined counter.
func (s *WalletService) CreditReward(userID uint, amount decimal.Decimal, txType models.TransactionType, bucket BalanceBucket, description string) (*models.Transaction, error) {
	var transaction *models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		transaction, err = s.CreditRewardTx(tx, userID, amount, txType, bucket, description)
		return err
	})
	if err != nil {
		return nil, err
	}
	return transaction, nil
}

// CreditRewardTx is CreditReward inside the caller's transaction, so a claim
// flag flip and its payout can commit or roll back together.
func (s *WalletService) CreditRewardTx(tx *gorm.DB, userID uint, amount decimal.Decimal, txType models.TransactionType, bucket BalanceBucket, description string) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, apperr.ErrInvalidAmount
	}

	column := "non_sendable_balance"
	if bucket == BucketSendable {
		column = "sendable_balance"
	}

	updates := map[string]interface{}{
		column:          gorm.Expr(column+" + ?", amount),
		"total_balance": gorm.Expr("total_balance + ?", amount),
	}
	if txType == models.TxTypeMining {
		updates["total_mined"] = gorm.Expr("total_mined + ?", amount)
	}

	res := tx.Model(&models.Wallet{}).
		Where("user_id = ?", userID).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperr.ErrWalletNotFound
	}

	transaction := models.Transaction{
		Reference:   uuid.NewString(),
		Type:        txType,
		Amount:      amount,
		ToUserID:    &userID,
		Status:      models.TxStatusCompleted,
		Description: description,
	}
	if err := tx.Create(&transaction).Error; err != nil {
		return nil, err
	}

	return &transaction, nil
}

// TransactionPage is one page of a user's transaction history
type TransactionPage struct {
	Transactions []models.TransactionView `json:"transactions"`
	Page         int                      `json:"page"`
	Limit        int                      `json:"limit"`
	Total        int64                    `json:"total"`
}

// GetTransactions returns the user's transaction history, newest first,
// framed from the viewer's perspective.
func (s *WalletService) GetTransactions(userID uint, page, limit int) (*TransactionPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var total int64
	if err := s.db.Model(&models.Transaction{}).
		Where("from_user_id = ? OR to_user_id = ?", userID, userID).
		Count(&total).Error; err != nil {
		return nil, err
	}

	var transactions []models.Transaction
	if err := s.db.
		Where("from_user_id = ? OR to_user_id = ?", userID, userID).
		Preload("FromUser").
		Preload("ToUser").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&transactions).Error; err != nil {
		return nil, err
	}

	views := make([]models.TransactionView, 0, len(transactions))
	for _, tx := range transactions {
		views = append(views, frameTransaction(tx, userID))
	}

	return &TransactionPage{
		Transactions: views,
		Page:         page,
		Limit:        limit,
		Total:        total,
	}, nil
}

// frameTransaction derives the viewer-relative direction of a ledger entry
func frameTransaction(tx models.Transaction, viewerID uint) models.TransactionView {
	view := models.TransactionView{Transaction: tx}

	switch {
	case tx.Type == models.TxTypeSend && tx.FromUserID != nil && *tx.FromUserID == viewerID:
		view.Direction = "sent"
		if tx.ToUser != nil {
			view.Counterparty = tx.ToUser.Username
		}
	case tx.Type == models.TxTypeSend:
		view.Direction = "received"
		if tx.FromUser != nil {
			view.Counterparty = tx.FromUser.Username
		}
	default:
		view.Direction = "credit"
	}

	return view
}
