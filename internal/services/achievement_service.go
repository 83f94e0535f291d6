package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"miningpad/internal/models"
	"miningpad/pkg/apperr"
	"miningpad/pkg/logger"
)

// AchievementService maintains per-user achievement progress. Same state
// machine as tasks: not-started, in-progress, completed, reward-claimed.
type AchievementService struct {
	db *gorm.DB
}

// NewAchievementService creates a new AchievementService
func NewAchievementService(db *gorm.DB) *AchievementService {
	return &AchievementService{db: db}
}

// ListWithProgress returns all active achievements merged with the caller's
// progress records.
func (s *AchievementService) ListWithProgress(userID uint) ([]models.UserAchievement, error) {
	var achievements []models.Achievement
	if err := s.db.Where("is_active = ?", true).Order("id").Find(&achievements).Error; err != nil {
		return nil, err
	}

	result := make([]models.UserAchievement, 0, len(achievements))
	for i := range achievements {
		record, err := s.getOrCreate(userID, achievements[i].ID)
		if err != nil {
			return nil, err
		}
		record.Achievement = &achievements[i]
		result = append(result, *record)
	}
	return result, nil
}

func (s *AchievementService) getOrCreate(userID, achievementID uint) (*models.UserAchievement, error) {
	var record models.UserAchievement
	err := s.db.Where("user_id = ? AND achievement_id = ?", userID, achievementID).First(&record).Error

	if err == gorm.ErrRecordNotFound {
		record = models.UserAchievement{UserID: userID, AchievementID: achievementID}
		if err := s.db.Create(&record).Error; err != nil {
			return nil, fmt.Errorf("failed to create user achievement: %w", err)
		}
		return &record, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// UpdateProgress advances achievement progress monotonically, stamping
// completion once progress reaches the target. Each effective advance appends
// a history entry.
func (s *AchievementService) UpdateProgress(userID, achievementID uint, proposed int, source, details string) (*models.UserAchievement, error) {
	var achievement models.Achievement
	if err := s.db.First(&achievement, achievementID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrTaskNotFound
		}
		return nil, err
	}

	record, err := s.getOrCreate(userID, achievementID)
	if err != nil {
		return nil, err
	}

	if proposed <= record.Progress {
		return record, nil
	}

	record.Progress = proposed
	justCompleted := false
	if !record.IsCompleted && record.Progress >= achievement.MaxProgress {
		now := time.Now()
		record.IsCompleted = true
		record.CompletedAt = &now
		justCompleted = true
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(record).Error; err != nil {
			return err
		}
		entry := models.AchievementProgressEntry{
			UserAchievementID: record.ID,
			Progress:          record.Progress,
			Source:            source,
			Details:           details,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}

	if justCompleted {
		logger.Infof("Achievement %d completed by user %d", achievementID, userID)
	}
	return record, nil
}

// AdvanceCategoryProgress bumps progress by delta on every active achievement
// of the given category. Driven by the same hooks that advance tasks.
func (s *AchievementService) AdvanceCategoryProgress(userID uint, category string, delta int, source string) error {
	var achievements []models.Achievement
	if err := s.db.Where("category = ? AND is_active = ?", category, true).Find(&achievements).Error; err != nil {
		return err
	}

	for _, achievement := range achievements {
		record, err := s.getOrCreate(userID, achievement.ID)
		if err != nil {
			return err
		}
		if _, err := s.UpdateProgress(userID, achievement.ID, record.Progress+delta, source, ""); err != nil {
			return err
		}
	}
	return nil
}

// GetProgressHistory returns the history entries for a user's achievement
func (s *AchievementService) GetProgressHistory(userID, achievementID uint) ([]models.AchievementProgressEntry, error) {
	var record models.UserAchievement
	if err := s.db.Where("user_id = ? AND achievement_id = ?", userID, achievementID).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrTaskNotFound
		}
		return nil, err
	}

	var entries []models.AchievementProgressEntry
	if err := s.db.Where("user_achievement_id = ?", record.ID).Order("created_at").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ClaimReward credits a completed achievement's reward, at most once
func (s *AchievementService) ClaimReward(userID, achievementID uint, wallet *WalletService) (*models.Transaction, error) {
	var achievement models.Achievement
	if err := s.db.First(&achievement, achievementID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrTaskNotFound
		}
		return nil, err
	}

	record, err := s.getOrCreate(userID, achievementID)
	if err != nil {
		return nil, err
	}

	if record.RewardClaimed {
		return nil, apperr.ErrAlreadyClaimed
	}
	if !record.IsCompleted {
		return nil, apperr.ErrNotCompleted
	}

	// Same shape as the task claim: flag flip and payout commit together
	now := time.Now()
	var transaction *models.Transaction
	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.UserAchievement{}).
			Where("id = ? AND reward_claimed = ? AND is_completed = ?", record.ID, false, true).
			Updates(map[string]interface{}{
				"reward_claimed":    true,
				"reward_claimed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrAlreadyClaimed
		}

		transaction, err = wallet.CreditRewardTx(
			tx,
			userID,
			achievement.Reward,
			models.TxTypeTaskReward,
			BucketNonSendable,
			fmt.Sprintf("Reward for achievement: %s", achievement.Title),
		)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("Achievement %d reward %s claimed by user %d", achievementID, achievement.Reward, userID)
	return transaction, nil
}

// CreateAchievement adds a new catalog achievement (admin only)
func (s *AchievementService) CreateAchievement(achievement *models.Achievement) error {
	if achievement.MaxProgress < 1 {
		achievement.MaxProgress = 1
	}
	return s.db.Create(achievement).Error
}
