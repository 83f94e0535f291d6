package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"miningpad/internal/models"
	"miningpad/internal/utils"
	"miningpad/pkg/apperr"
	"miningpad/pkg/logger"
)

// ReferralService handles referral codes, signup linking and reward payout
type ReferralService struct {
	db            *gorm.DB
	walletService *WalletService
	rewardAmount  decimal.Decimal
}

// NewReferralService creates a new ReferralService. rewardAmount is the fixed
// per-side bonus credited when a referral is rewarded.
func NewReferralService(db *gorm.DB, walletService *WalletService, rewardAmount decimal.Decimal) *ReferralService {
	return &ReferralService{
		db:            db,
		walletService: walletService,
		rewardAmount:  rewardAmount,
	}
}

// GetUserReferralCode gets or creates a referral code for a user
func (s *ReferralService) GetUserReferralCode(userID uint) (*models.ReferralCode, error) {
	var code models.ReferralCode
	result := s.db.Where("user_id = ? AND is_active = ?", userID, true).First(&code)

	if result.Error == gorm.ErrRecordNotFound {
		return s.generateReferralCode(userID)
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &code, nil
}

func (s *ReferralService) generateReferralCode(userID uint) (*models.ReferralCode, error) {
	raw, err := utils.GenerateRandomCode(8)
	if err != nil {
		return nil, err
	}

	referralCode := models.ReferralCode{
		UserID:   userID,
		Code:     raw,
		IsActive: true,
	}

	if err := s.db.Create(&referralCode).Error; err != nil {
		return nil, fmt.Errorf("failed to create referral code: %w", err)
	}

	logger.Infof("Generated referral code %s for user %d", raw, userID)
	return &referralCode, nil
}

// ValidateCode checks whether a referral code exists and is active, returning
// the owning user's id.
func (s *ReferralService) ValidateCode(code string) (*models.ReferralCode, error) {
	var referralCode models.ReferralCode
	if err := s.db.Where("code = ? AND is_active = ?", code, true).First(&referralCode).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrUserNotFound
		}
		return nil, err
	}
	return &referralCode, nil
}

// ProcessReferralSignup links a new user to the owner of the given code.
// Invalid codes and self-referrals are logged and swallowed (nil, nil), never
// surfaced to the registration flow. Processing the same referee twice
// returns the existing record unchanged.
func (s *ReferralService) ProcessReferralSignup(refereeID uint, code string) (*models.Referral, error) {
	if code == "" {
		return nil, nil
	}

	referralCode, err := s.ValidateCode(code)
	if err != nil {
		logger.Warnf("referral signup for user %d with invalid code %q", refereeID, code)
		return nil, nil
	}

	if referralCode.UserID == refereeID {
		logger.Warnf("user %d tried to use their own referral code", refereeID)
		return nil, nil
	}

	var existing models.Referral
	if err := s.db.Where("referee_id = ?", refereeID).First(&existing).Error; err == nil {
		return &existing, nil
	}

	referral := models.Referral{
		ReferrerID:     referralCode.UserID,
		RefereeID:      refereeID,
		Code:           code,
		Status:         models.ReferralStatusCompleted,
		ReferrerReward: s.rewardAmount,
		RefereeReward:  s.rewardAmount,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&referral).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", refereeID).
			Update("referred_by_id", referralCode.UserID).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create referral: %w", err)
	}

	if err := s.bumpStats(referralCode.UserID, map[string]interface{}{
		"total_referrals": gorm.Expr("total_referrals + 1"),
	}); err != nil {
		logger.Warnf("failed to count referral for user %d: %v", referralCode.UserID, err)
	}

	logger.Infof("User %d referred by user %d (code %s)", refereeID, referralCode.UserID, code)
	return &referral, nil
}

// GiveReferralRewards credits both sides of a referral. Each side's given
// flag is flipped by a conditional update in the same transaction as its
// payout, so concurrent or repeated invocations pay each side at most once.
func (s *ReferralService) GiveReferralRewards(referralID uint) error {
	var referral models.Referral
	if err := s.db.First(&referral, referralID).Error; err != nil {
		return err
	}

	now := time.Now()

	if err := s.paySide(referral.ID, "referrer", referral.ReferrerID, referral.ReferrerReward,
		"Referral bonus for inviting a friend", now); err != nil {
		return fmt.Errorf("failed to credit referrer: %w", err)
	}

	if err := s.paySide(referral.ID, "referee", referral.RefereeID, referral.RefereeReward,
		"Referral bonus for joining with a code", now); err != nil {
		return fmt.Errorf("failed to credit referee: %w", err)
	}

	// The status flip is conditional too, so the rewarded stats are bumped
	// exactly once no matter how many callers race here.
	res := s.db.Model(&models.Referral{}).
		Where("id = ? AND status <> ?", referral.ID, models.ReferralStatusRewarded).
		Update("status", models.ReferralStatusRewarded)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		if err := s.bumpStats(referral.ReferrerID, map[string]interface{}{
			"rewarded_count":     gorm.Expr("rewarded_count + 1"),
			"total_rewards_paid": gorm.Expr("total_rewards_paid + ?", referral.ReferrerReward),
		}); err != nil {
			logger.Warnf("failed to update referral stats for user %d: %v", referral.ReferrerID, err)
		}
		logger.Infof("Referral %d rewarded (referrer %d, referee %d)", referral.ID, referral.ReferrerID, referral.RefereeID)
	}
	return nil
}

// paySide flips one side's given flag and credits that side atomically. A
// flag that is already set makes the whole transaction a no-op.
func (s *ReferralService) paySide(referralID uint, side string, userID uint, amount decimal.Decimal, description string, now time.Time) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Referral{}).
			Where(fmt.Sprintf("id = ? AND %s_given = ?", side), referralID, false).
			Updates(map[string]interface{}{
				side + "_given":   true,
				side + "_paid_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		_, err := s.walletService.CreditRewardTx(tx, userID, amount, models.TxTypeReferral, BucketSendable, description)
		return err
	})
}

// bumpStats applies counter updates to the referrer's stats row, creating it
// on first use.
func (s *ReferralService) bumpStats(userID uint, updates map[string]interface{}) error {
	var stats models.ReferralStats
	err := s.db.Where("user_id = ?", userID).First(&stats).Error
	if err == gorm.ErrRecordNotFound {
		stats = models.ReferralStats{UserID: userID}
		if err := s.db.Create(&stats).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	updates["updated_at"] = time.Now()
	return s.db.Model(&stats).Updates(updates).Error
}

// ReferralInfo bundles everything the referral info endpoint returns
type ReferralInfo struct {
	Code      string               `json:"code"`
	Stats     models.ReferralStats `json:"stats"`
	Referrals []models.Referral    `json:"referrals"`
}

// GetReferralInfo returns the user's code, stats and referral list
func (s *ReferralService) GetReferralInfo(userID uint) (*ReferralInfo, error) {
	code, err := s.GetUserReferralCode(userID)
	if err != nil {
		return nil, err
	}

	var stats models.ReferralStats
	if err := s.db.Where("user_id = ?", userID).First(&stats).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
		stats = models.ReferralStats{UserID: userID}
	}

	var referrals []models.Referral
	if err := s.db.Where("referrer_id = ?", userID).Preload("Referee").Find(&referrals).Error; err != nil {
		return nil, err
	}

	return &ReferralInfo{
		Code:      code.Code,
		Stats:     stats,
		Referrals: referrals,
	}, nil
}
