package services

import (
	"testing"

	"github.com/shopspring/decimal"

	"miningpad/internal/models"
)

func TestProcessReferralSignupIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ws := NewWalletService(db, nil, nil)
	rs := NewReferralService(db, ws, decimal.NewFromInt(5))

	referrer := createUserWithWallet(t, db, ws, "alice", "alice@example.com", decimal.Zero)
	referee := createUserWithWallet(t, db, ws, "bob", "bob@example.com", decimal.Zero)

	code, err := rs.GetUserReferralCode(referrer.ID)
	if err != nil {
		t.Fatalf("GetUserReferralCode failed: %v", err)
	}

	first, err := rs.ProcessReferralSignup(referee.ID, code.Code)
	if err != nil {
		t.Fatalf("ProcessReferralSignup failed: %v", err)
	}
	if first == nil {
		t.Fatal("expected a referral record")
	}

	second, err := rs.ProcessReferralSignup(referee.ID, code.Code)
	if err != nil {
		t.Fatalf("second ProcessReferralSignup failed: %v", err)
	}
	if second == nil || second.ID != first.ID {
		t.Errorf("expected the same referral record, got %+v", second)
	}

	var count int64
	db.Model(&models.Referral{}).Where("referee_id = ?", referee.ID).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 referral record, got %d", count)
	}

	// The referral is counted once at creation, before any payout
	var stats models.ReferralStats
	if err := db.Where("user_id = ?", referrer.ID).First(&stats).Error; err != nil {
		t.Fatalf("expected referral stats: %v", err)
	}
	if stats.TotalReferrals != 1 {
		t.Errorf("expected total referrals 1, got %d", stats.TotalReferrals)
	}
	if stats.RewardedCount != 0 {
		t.Errorf("expected rewarded count 0 before payout, got %d", stats.RewardedCount)
	}
}

func TestProcessReferralSignupInvalidAndSelf(t *testing.T) {
	db := setupTestDB(t)
	ws := NewWalletService(db, nil, nil)
	rs := NewReferralService(db, ws, decimal.NewFromInt(5))

	user := createUserWithWallet(t, db, ws, "alice", "alice@example.com", decimal.Zero)

	// Invalid code is swallowed, not surfaced
	referral, err := rs.ProcessReferralSignup(user.ID, "nope1234")
	if err != nil {
		t.Fatalf("invalid code should not error: %v", err)
	}
	if referral != nil {
		t.Error("expected nil referral for invalid code")
	}

	// Self-referral is swallowed too
	code, err := rs.GetUserReferralCode(user.ID)
	if err != nil {
		t.Fatalf("GetUserReferralCode failed: %v", err)
	}
	referral, err = rs.ProcessReferralSignup(user.ID, code.Code)
	if err != nil {
		t.Fatalf("self-referral should not error: %v", err)
	}
	if referral != nil {
		t.Error("expected nil referral for self-referral")
	}
}

func TestGiveReferralRewards(t *testing.T) {
	db := setupTestDB(t)
	ws := NewWalletService(db, nil, nil)
	rs := NewReferralService(db, ws, decimal.NewFromInt(5))

	referrer := createUserWithWallet(t, db, ws, "alice", "alice@example.com", decimal.Zero)
	referee := createUserWithWallet(t, db, ws, "bob", "bob@example.com", decimal.Zero)

	code, err := rs.GetUserReferralCode(referrer.ID)
	if err != nil {
		t.Fatalf("GetUserReferralCode failed: %v", err)
	}
	referral, err := rs.ProcessReferralSignup(referee.ID, code.Code)
	if err != nil || referral == nil {
		t.Fatalf("ProcessReferralSignup failed: %v", err)
	}
	if referral.Status != models.ReferralStatusCompleted {
		t.Errorf("expected completed status, got %s", referral.Status)
	}

	if err := rs.GiveReferralRewards(referral.ID); err != nil {
		t.Fatalf("GiveReferralRewards failed: %v", err)
	}

	five := decimal.NewFromInt(5)
	if !getWallet(t, db, referrer.ID).SendableBalance.Equal(five) {
		t.Error("expected referrer sendable 5")
	}
	if !getWallet(t, db, referee.ID).SendableBalance.Equal(five) {
		t.Error("expected referee sendable 5")
	}
	assertBalanceInvariant(t, db, referrer.ID)
	assertBalanceInvariant(t, db, referee.ID)

	// One referral transaction per side
	var txCount int64
	db.Model(&models.Transaction{}).Where("type = ?", models.TxTypeReferral).Count(&txCount)
	if txCount != 2 {
		t.Errorf("expected 2 referral transactions, got %d", txCount)
	}

	var updated models.Referral
	db.First(&updated, referral.ID)
	if updated.Status != models.ReferralStatusRewarded {
		t.Errorf("expected rewarded status, got %s", updated.Status)
	}
	if !updated.ReferrerGiven || !updated.RefereeGiven {
		t.Error("expected both given flags set")
	}

	// Paying again is a no-op
	if err := rs.GiveReferralRewards(referral.ID); err != nil {
		t.Fatalf("second GiveReferralRewards failed: %v", err)
	}
	if !getWallet(t, db, referrer.ID).SendableBalance.Equal(five) {
		t.Error("referrer must not be double-credited")
	}
	db.Model(&models.Transaction{}).Where("type = ?", models.TxTypeReferral).Count(&txCount)
	if txCount != 2 {
		t.Errorf("expected still 2 referral transactions, got %d", txCount)
	}

	// Referrer stats reflect the single payout
	var stats models.ReferralStats
	if err := db.Where("user_id = ?", referrer.ID).First(&stats).Error; err != nil {
		t.Fatalf("expected referral stats: %v", err)
	}
	if stats.TotalReferrals != 1 {
		t.Errorf("expected total referrals 1, got %d", stats.TotalReferrals)
	}
	if stats.RewardedCount != 1 {
		t.Errorf("expected rewarded count 1, got %d", stats.RewardedCount)
	}
	if !stats.TotalRewardsPaid.Equal(five) {
		t.Errorf("expected total rewards paid 5, got %s", stats.TotalRewardsPaid)
	}
}

func TestGiveReferralRewardsSideGuard(t *testing.T) {
	db := setupTestDB(t)
	ws := NewWalletService(db, nil, nil)
	rs := NewReferralService(db, ws, decimal.NewFromInt(5))

	referrer := createUserWithWallet(t, db, ws, "alice", "alice@example.com", decimal.Zero)
	referee := createUserWithWallet(t, db, ws, "bob", "bob@example.com", decimal.Zero)

	code, err := rs.GetUserReferralCode(referrer.ID)
	if err != nil {
		t.Fatalf("GetUserReferralCode failed: %v", err)
	}
	referral, err := rs.ProcessReferralSignup(referee.ID, code.Code)
	if err != nil || referral == nil {
		t.Fatalf("ProcessReferralSignup failed: %v", err)
	}

	// A side whose flag is already set is skipped entirely
	err = db.Model(&models.Referral{}).Where("id = ?", referral.ID).
		Update("referrer_given", true).Error
	if err != nil {
		t.Fatalf("failed to pre-set flag: %v", err)
	}

	if err := rs.GiveReferralRewards(referral.ID); err != nil {
		t.Fatalf("GiveReferralRewards failed: %v", err)
	}

	if !getWallet(t, db, referrer.ID).SendableBalance.IsZero() {
		t.Error("referrer must not be paid when the flag was already set")
	}
	if !getWallet(t, db, referee.ID).SendableBalance.Equal(decimal.NewFromInt(5)) {
		t.Error("expected referee sendable 5")
	}

	var txCount int64
	db.Model(&models.Transaction{}).Where("type = ?", models.TxTypeReferral).Count(&txCount)
	if txCount != 1 {
		t.Errorf("expected 1 referral transaction, got %d", txCount)
	}
}
