package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"miningpad/internal/models"
	"miningpad/pkg/apperr"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	// :memory: is per-connection; keep a single connection so every query
	// sees the same database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Wallet{},
		&models.WalletAddress{},
		&models.Transaction{},
		&models.ReferralCode{},
		&models.Referral{},
		&models.ReferralStats{},
		&models.Task{},
		&models.UserTask{},
		&models.TaskProgressEntry{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.AchievementProgressEntry{},
		&models.MiningSession{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

// createUserWithWallet creates a user with a zero-bonus wallet and funds the
// sendable bucket with the given amount.
func createUserWithWallet(t *testing.T, db *gorm.DB, ws *WalletService, username, email string, sendable decimal.Decimal) *models.User {
	user := models.User{Username: username, Email: email, PasswordHash: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	if _, err := ws.CreateWallet(db, user.ID, decimal.Zero); err != nil {
		t.Fatalf("failed to create wallet: %v", err)
	}

	if sendable.IsPositive() {
		err := db.Model(&models.Wallet{}).
			Where("user_id = ?", user.ID).
			Updates(map[string]interface{}{
				"sendable_balance": sendable,
				"total_balance":    sendable,
			}).Error
		if err != nil {
			t.Fatalf("failed to fund wallet: %v", err)
		}
	}

	return &user
}

func getWallet(t *testing.T, db *gorm.DB, userID uint) *models.Wallet {
	var wallet models.Wallet
	if err := db.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		t.Fatalf("failed to load wallet for user %d: %v", userID, err)
	}
	return &wallet
}

// assertBalanceInvariant checks total == sendable + nonSendable + pending
func assertBalanceInvariant(t *testing.T, db *gorm.DB, userID uint) {
	t.Helper()
	w := getWallet(t, db, userID)
	sum := w.SendableBalance.Add(w.NonSendableBalance).Add(w.PendingBalance)
	if !w.TotalBalance.Equal(sum) {
		t.Errorf("balance invariant broken for user %d: total=%s buckets=%s", userID, w.TotalBalance, sum)
	}
}

func TestCreateWalletWithSignupBonus(t *testing.T) {
	db := setupTestDB(t)
	ws := NewWalletService(db, nil, nil)

	user := models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	db.Create(&user)

	bonus := decimal.NewFromInt(10)
	wallet, err := ws.CreateWallet(db, user.ID, bonus)
	if err != nil {
		t.Fatalf("CreateWallet failed: %v", err)
	}

	if !wallet.NonSendableBalance.Equal(bonus) {
		t.Errorf("expected non-sendable %s, got %s", bonus, wallet.NonSendableBalance)
	}
	if !wallet.TotalBalance.Equal(bonus) {
		t.Errorf("expected total %s, got %s", bonus, wallet.TotalBalance)
	}
	if wallet.CurrentAddress == "" {
		t.Error("expected a generated current address")
	}

	var addresses []models.WalletAddress
	db.Where("wallet_id = ?", wallet.ID).Find(&addresses)
	if len(addresses) != 1 || !addresses[0].IsDefault {
		t.Errorf("expected one default address, got %+v", addresses)
	}

	var bonusTx models.Transaction
	if err := db.Where("to_user_id = ? AND type = ?", user.ID, models.TxTypeBonus).First(&bonusTx).Error; err != nil {
		t.Fatalf("expected a bonus transaction: %v", err)
	}
	if !bonusTx.Amount.Equal(bonus) {
		t.Errorf("expected bonus amount %s, got %s", bonus, bonusTx.Amount)
	}

	assertBalanceInvariant(t, db, user.ID)
}

func TestTransferByAddress(t *testing.T) {
	db := setupTestDB(t)
	ws := NewWalletService(db, nil, nil)

	sender := createUserWithWallet(t, db, ws, "alice", "alice@example.com", decimal.NewFromInt(100))
	recipient := createUserWithWallet(t, db, ws, "bob", "bob@example.com", decimal.Zero)

	recipientWallet := getWallet(t, db, recipient.ID)

	amount := decimal.NewFromInt(30)
	tx, err := ws.Transfer(sender.ID, recipientWallet.CurrentAddress, "", amount, "")
	if err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	if tx.Type != models.TxTypeSend {
		t.Errorf("expected send transaction, got %s", tx.Type)
	}
	if tx.FromUserID == nil || *tx.FromUserID != sender.ID {
		t.Errorf("expected from_user_id %d", sender.ID)
	}
	if tx.ToUserID == nil || *tx.ToUserID != recipient.ID {
		t.Errorf("expected to_user_id %d", recipient.ID)
	}

	senderWallet := getWallet(t, db, sender.ID)
	if !senderWallet.SendableBalance.Equal(decimal.NewFromInt(70)) {
		t.Errorf("expected sender sendable 70, got %s", senderWallet.SendableBalance)
	}
	if !senderWallet.TotalSent.Equal(amount) {
		t.Errorf("expected total_sent %s, got %s", amount, senderWallet.TotalSent)
	}

	recipientWallet = getWallet(t, db, recipient.ID)
	if !recipientWallet.SendableBalance.Equal(amount) {
		t.Errorf("expected recipient sendable %s, got %s", amount, recipientWallet.SendableBalance)
	}
	if !recipientWallet.TotalReceived.Equal(amount) {
		t.Errorf("expected total_received %s, got %s", amount, recipientWallet.TotalReceived)
	}

	// Exactly one canonical ledger entry for the transfer
	var count int64
	db.Model(&models.Transaction{}).Where("type = ?", models.TxTypeSend).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 send transaction, got %d", count)
	}

	assertBalanceInvariant(t, db, sender.ID)
	assertBalanceInvariant(t, db, recipient.ID)
}

func TestTransferByEmail(t *testing.T) {
	db := setupTestDB(t)
	ws := NewWalletService(db, nil, nil)

	sender := createUserWithWallet(t, db, ws, "alice", "alice@example.com", decimal.NewFromInt(10))
	recipient := createUserWithWallet(t, db, ws, "bob", "bob@example.com", decimal.Zero)

	amount := decimal.NewFromInt(3)
	_, err := ws.Transfer(sender.ID, "", "bob@example.com", amount, "coffee")
	if err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	if !getWallet(t, db, sender.ID).SendableBalance.Equal(decimal.NewFromInt(7)) {
		t.Error("expected sender sendable 7")
	}
	if !getWallet(t, db, recipient.ID).SendableBalance.Equal(amount) {
		t.Error("expected recipient sendable 3")
	}

	var tx models.Transaction
	err = db.Where("type = ? AND from_user_id = ? AND to_user_id = ?",
		models.TxTypeSend, sender.ID, recipient.ID).First(&tx).Error
	if err != nil {
		t.Fatalf("expected a send transaction referencing both users: %v", err)
	}
	if !tx.Amount.Equal(amount) {
		t.Errorf("expected amount %s, got %s", amount, tx.Amount)
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	db := setupTestDB(t)
	ws := NewWalletService(db, nil, nil)

	sender := createUserWithWallet(t, db, ws, "alice", "alice@example.com", decimal.NewFromInt(5))
	createUserWithWallet(t, db, ws, "bob", "bob@example.com", decimal.Zero)

	_, err := ws.Transfer(sender.ID, "", "bob@example.com", decimal.NewFromInt(10), "")
	if err != apperr.ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// No ledger entry and no balance mutation on either side
	var count int64
	db.Model(&models.Transaction{}).Where("type = ?", models.TxTypeSend).Count(&count)
	if count != 0 {
		t.Errorf("expected no send transactions, got %d", count)
	}
	if !getWallet(t, db, sender.ID).SendableBalance.Equal(decimal.NewFromInt(5)) {
		t.Error("sender balance must be unchanged")
	}
}

func TestTransferToSelf(t *testing.T) {
	db := setupTestDB(t)
	ws := NewWalletService(db, nil, nil)

	sender := createUserWithWallet(t, db, ws, "alice", "alice@example.com", decimal.NewFromInt(5))

	_, err := ws.Transfer(sender.ID, "", "alice@example.com", decimal.NewFromInt(1), "")
	if err != apperr.ErrSelfTransfer {
		t.Fatalf("expected ErrSelfTransfer, got %v", err)
	}

	var count int64
	db.Model(&models.Transaction{}).Where("type = ?", models.TxTypeSend).Count(&count)
	if count != 0 {
		t.Errorf("expected no transactions, got %d", count)
	}
}

func TestTransferRecipientNotFound(t *testing.T) {
	db := setupTestDB(t)
	ws := NewWalletService(db, nil, nil)

	sender := createUserWithWallet(t, db, ws, "alice", "alice@example.com", decimal.NewFromInt(5))

	_, err := ws.Transfer(sender.ID, "", "nobody@example.com", decimal.NewFromInt(1), "")
	if err != apperr.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestExchange(t *testing.T) {
	db := setupTestDB(t)
	ws := NewWalletService(db, nil, nil)

	user := createUserWithWallet(t, db, ws, "alice", "alice@example.com", decimal.NewFromInt(20))

	wallet, err := ws.Exchange(user.ID, decimal.NewFromInt(8), BucketSendable, BucketNonSendable)
	if err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}

	if !wallet.SendableBalance.Equal(decimal.NewFromInt(12)) {
		t.Errorf("expected sendable 12, got %s", wallet.SendableBalance)
	}
	if !wallet.NonSendableBalance.Equal(decimal.NewFromInt(8)) {
		t.Errorf("expected non-sendable 8, got %s", wallet.NonSendableBalance)
	}
	assertBalanceInvariant(t, db, user.ID)

	// Exchange is invisible in the ledger
	var count int64
	db.Model(&models.Transaction{}).Where("type = ?", models.TxTypeExchange).Count(&count)
	if count != 0 {
		t.Errorf("expected no exchange transactions, got %d", count)
	}

	if _, err := ws.Exchange(user.ID, decimal.NewFromInt(1), BucketSendable, BucketSendable); err != apperr.ErrSameBucket {
		t.Errorf("expected ErrSameBucket, got %v", err)
	}
	if _, err := ws.Exchange(user.ID, decimal.NewFromInt(100), BucketSendable, BucketNonSendable); err != apperr.ErrInsufficientFunds {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestCreditRewardMining(t *testing.T) {
	db := setupTestDB(t)
	ws := NewWalletService(db, nil, nil)

	user := createUserWithWallet(t, db, ws, "alice", "alice@example.com", decimal.Zero)

	amount := decimal.NewFromFloat(2.5)
	tx, err := ws.CreditReward(user.ID, amount, models.TxTypeMining, BucketNonSendable, "Mining reward")
	if err != nil {
		t.Fatalf("CreditReward failed: %v", err)
	}
	if tx.Type != models.TxTypeMining {
		t.Errorf("expected mining transaction, got %s", tx.Type)
	}

	wallet := getWallet(t, db, user.ID)
	if !wallet.NonSendableBalance.Equal(amount) {
		t.Errorf("expected non-sendable %s, got %s", amount, wallet.NonSendableBalance)
	}
	if !wallet.TotalMined.Equal(amount) {
		t.Errorf("expected total_mined %s, got %s", amount, wallet.TotalMined)
	}
	assertBalanceInvariant(t, db, user.ID)
}

func TestTransactionHistoryPerspective(t *testing.T) {
	db := setupTestDB(t)
	ws := NewWalletService(db, nil, nil)

	sender := createUserWithWallet(t, db, ws, "alice", "alice@example.com", decimal.NewFromInt(10))
	recipient := createUserWithWallet(t, db, ws, "bob", "bob@example.com", decimal.Zero)

	if _, err := ws.Transfer(sender.ID, "", "bob@example.com", decimal.NewFromInt(4), ""); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	senderPage, err := ws.GetTransactions(sender.ID, 1, 10)
	if err != nil {
		t.Fatalf("GetTransactions failed: %v", err)
	}
	if len(senderPage.Transactions) != 1 {
		t.Fatalf("expected 1 transaction for sender, got %d", len(senderPage.Transactions))
	}
	if senderPage.Transactions[0].Direction != "sent" {
		t.Errorf("expected direction sent, got %s", senderPage.Transactions[0].Direction)
	}
	if senderPage.Transactions[0].Counterparty != "bob" {
		t.Errorf("expected counterparty bob, got %s", senderPage.Transactions[0].Counterparty)
	}

	recipientPage, err := ws.GetTransactions(recipient.ID, 1, 10)
	if err != nil {
		t.Fatalf("GetTransactions failed: %v", err)
	}
	if recipientPage.Transactions[0].Direction != "received" {
		t.Errorf("expected direction received, got %s", recipientPage.Transactions[0].Direction)
	}
	if recipientPage.Transactions[0].Counterparty != "alice" {
		t.Errorf("expected counterparty alice, got %s", recipientPage.Transactions[0].Counterparty)
	}
}
