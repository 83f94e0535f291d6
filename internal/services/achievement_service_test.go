package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miningpad/internal/models"
	"miningpad/pkg/apperr"
)

func TestAchievementClaimLifecycle(t *testing.T) {
	db := setupTestDB(t)
	as := NewAchievementService(db)
	ws := NewWalletService(db, nil, nil)

	user := createUserWithWallet(t, db, ws, "alice", "alice@example.com", decimal.Zero)

	achievement := models.Achievement{
		Title:       "First transfer",
		MaxProgress: 1,
		Reward:      decimal.NewFromInt(50),
		IsActive:    true,
	}
	require.NoError(t, db.Create(&achievement).Error)

	_, err := as.ClaimReward(user.ID, achievement.ID, ws)
	assert.ErrorIs(t, err, apperr.ErrNotCompleted)

	record, err := as.UpdateProgress(user.ID, achievement.ID, 1, "manual", "")
	require.NoError(t, err)
	assert.True(t, record.IsCompleted)

	tx, err := as.ClaimReward(user.ID, achievement.ID, ws)
	require.NoError(t, err)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(50)))

	wallet := getWallet(t, db, user.ID)
	assert.True(t, wallet.NonSendableBalance.Equal(decimal.NewFromInt(50)))
	assertBalanceInvariant(t, db, user.ID)

	_, err = as.ClaimReward(user.ID, achievement.ID, ws)
	assert.ErrorIs(t, err, apperr.ErrAlreadyClaimed)
}

func TestAchievementProgressMonotonic(t *testing.T) {
	db := setupTestDB(t)
	as := NewAchievementService(db)
	ws := NewWalletService(db, nil, nil)

	user := createUserWithWallet(t, db, ws, "alice", "alice@example.com", decimal.Zero)

	achievement := models.Achievement{
		Title:       "Mine 10 sessions",
		MaxProgress: 10,
		Reward:      decimal.NewFromInt(5),
		IsActive:    true,
	}
	require.NoError(t, db.Create(&achievement).Error)

	record, err := as.UpdateProgress(user.ID, achievement.ID, 4, "manual", "")
	require.NoError(t, err)
	assert.Equal(t, 4, record.Progress)

	record, err = as.UpdateProgress(user.ID, achievement.ID, 2, "manual", "")
	require.NoError(t, err)
	assert.Equal(t, 4, record.Progress)
	assert.False(t, record.IsCompleted)

	// Only the effective advance left a history entry
	history, err := as.GetProgressHistory(user.ID, achievement.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Equal(t, 4, history[0].Progress)
}

func TestTransferAdvancesAchievements(t *testing.T) {
	db := setupTestDB(t)
	as := NewAchievementService(db)
	ts := NewTaskService(db)
	ws := NewWalletService(db, ts, as)

	sender := createUserWithWallet(t, db, ws, "alice", "alice@example.com", decimal.NewFromInt(10))
	createUserWithWallet(t, db, ws, "bob", "bob@example.com", decimal.Zero)

	achievement := models.Achievement{
		Title:       "First transfer",
		Category:    "transfer",
		MaxProgress: 1,
		Reward:      decimal.NewFromInt(50),
		IsActive:    true,
	}
	require.NoError(t, db.Create(&achievement).Error)

	_, err := ws.Transfer(sender.ID, "", "bob@example.com", decimal.NewFromInt(1), "")
	require.NoError(t, err)

	var record models.UserAchievement
	require.NoError(t, db.Where("user_id = ? AND achievement_id = ?", sender.ID, achievement.ID).First(&record).Error)
	assert.Equal(t, 1, record.Progress)
	assert.True(t, record.IsCompleted)

	history, err := as.GetProgressHistory(sender.ID, achievement.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "transfer", history[0].Source)

	// The completed achievement is claimable straight away
	tx, err := as.ClaimReward(sender.ID, achievement.ID, ws)
	require.NoError(t, err)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(50)))
}

func TestAchievementClaimRollsBackOnCreditFailure(t *testing.T) {
	db := setupTestDB(t)
	as := NewAchievementService(db)
	ws := NewWalletService(db, nil, nil)

	user := createUserWithWallet(t, db, ws, "alice", "alice@example.com", decimal.Zero)

	achievement := models.Achievement{
		Title:       "Milestone",
		MaxProgress: 1,
		Reward:      decimal.NewFromInt(25),
		IsActive:    true,
	}
	require.NoError(t, db.Create(&achievement).Error)

	_, err := as.UpdateProgress(user.ID, achievement.ID, 1, "manual", "")
	require.NoError(t, err)

	// A failed payout must roll the claim flag back
	require.NoError(t, db.Where("user_id = ?", user.ID).Delete(&models.Wallet{}).Error)
	_, err = as.ClaimReward(user.ID, achievement.ID, ws)
	assert.ErrorIs(t, err, apperr.ErrWalletNotFound)

	var record models.UserAchievement
	require.NoError(t, db.Where("user_id = ? AND achievement_id = ?", user.ID, achievement.ID).First(&record).Error)
	assert.False(t, record.RewardClaimed)

	// Once the wallet is back the claim goes through and pays out
	_, err = ws.CreateWallet(db, user.ID, decimal.Zero)
	require.NoError(t, err)

	tx, err := as.ClaimReward(user.ID, achievement.ID, ws)
	require.NoError(t, err)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(25)))
	assert.True(t, getWallet(t, db, user.ID).NonSendableBalance.Equal(decimal.NewFromInt(25)))
}
