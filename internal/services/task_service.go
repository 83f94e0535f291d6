package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"miningpad/internal/models"
	"miningpad/pkg/apperr"
	"miningpad/pkg/logger"
)

// TaskService maintains per-user task progress and gates reward claims.
// Progress only ever increases; completion is stamped once; a reward can be
// claimed at most once, enforced by a conditional update rather than a
// read-then-write check.
type TaskService struct {
	db *gorm.DB
}

// NewTaskService creates a new TaskService
func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{db: db}
}

// ListTasksWithProgress returns all active tasks merged with the caller's
// progress records.
func (s *TaskService) ListTasksWithProgress(userID uint) ([]models.UserTask, error) {
	var tasks []models.Task
	if err := s.db.Where("is_active = ?", true).Order("id").Find(&tasks).Error; err != nil {
		return nil, err
	}

	result := make([]models.UserTask, 0, len(tasks))
	for i := range tasks {
		userTask, err := s.getOrCreateUserTask(userID, tasks[i].ID)
		if err != nil {
			return nil, err
		}
		userTask.Task = &tasks[i]
		result = append(result, *userTask)
	}
	return result, nil
}

// getOrCreateUserTask fetches the progress record, creating it lazily
func (s *TaskService) getOrCreateUserTask(userID, taskID uint) (*models.UserTask, error) {
	var userTask models.UserTask
	err := s.db.Where("user_id = ? AND task_id = ?", userID, taskID).First(&userTask).Error

	if err == gorm.ErrRecordNotFound {
		userTask = models.UserTask{UserID: userID, TaskID: taskID}
		if err := s.db.Create(&userTask).Error; err != nil {
			return nil, fmt.Errorf("failed to create user task: %w", err)
		}
		return &userTask, nil
	}
	if err != nil {
		return nil, err
	}
	return &userTask, nil
}

// UpdateProgress advances a user's progress on a task. The stored value is
// max(current, proposed), so late or duplicate reports never retract
// completion. Each effective advance appends a history entry; completion is
// stamped the moment progress reaches the task's target.
func (s *TaskService) UpdateProgress(userID, taskID uint, proposed int, source, details string) (*models.UserTask, error) {
	var task models.Task
	if err := s.db.First(&task, taskID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrTaskNotFound
		}
		return nil, err
	}

	userTask, err := s.getOrCreateUserTask(userID, taskID)
	if err != nil {
		return nil, err
	}

	if proposed <= userTask.Progress {
		return userTask, nil
	}

	userTask.Progress = proposed
	justCompleted := false
	if !userTask.IsCompleted && userTask.Progress >= task.MaxProgress {
		now := time.Now()
		userTask.IsCompleted = true
		userTask.CompletedAt = &now
		justCompleted = true
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(userTask).Error; err != nil {
			return err
		}
		entry := models.TaskProgressEntry{
			UserTaskID: userTask.ID,
			Progress:   userTask.Progress,
			Source:     source,
			Details:    details,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}

	if justCompleted {
		logger.Infof("Task %d completed by user %d", taskID, userID)
	}
	return userTask, nil
}

// AdvanceCategoryProgress bumps progress by delta on every active task of the
// given category. Used by fire-and-forget hooks (e.g. after a transfer).
func (s *TaskService) AdvanceCategoryProgress(userID uint, category string, delta int, source string) error {
	var tasks []models.Task
	if err := s.db.Where("category = ? AND is_active = ?", category, true).Find(&tasks).Error; err != nil {
		return err
	}

	for _, task := range tasks {
		userTask, err := s.getOrCreateUserTask(userID, task.ID)
		if err != nil {
			return err
		}
		if _, err := s.UpdateProgress(userID, task.ID, userTask.Progress+delta, source, ""); err != nil {
			return err
		}
	}
	return nil
}

// ClaimReward converts a completed task's reward into a wallet credit. The
// rewardClaimed flip is a conditional update checking RowsAffected, so two
// concurrent claims cannot both pass.
func (s *TaskService) ClaimReward(userID, taskID uint, wallet *WalletService) (*models.Transaction, error) {
	var task models.Task
	if err := s.db.First(&task, taskID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrTaskNotFound
		}
		return nil, err
	}

	userTask, err := s.getOrCreateUserTask(userID, taskID)
	if err != nil {
		return nil, err
	}

	if userTask.RewardClaimed {
		return nil, apperr.ErrAlreadyClaimed
	}
	if !userTask.IsCompleted {
		return nil, apperr.ErrNotCompleted
	}

	// The flag flip and the payout share one transaction: if the credit
	// fails the claim rolls back and stays claimable.
	now := time.Now()
	var transaction *models.Transaction
	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.UserTask{}).
			Where("id = ? AND reward_claimed = ? AND is_completed = ?", userTask.ID, false, true).
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
			task.Reward,
			models.TxTypeTaskReward,
			BucketNonSendable,
			fmt.Sprintf("Reward for task: %s", task.Title),
		)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("Task %d reward %s claimed by user %d", taskID, task.Reward, userID)
	return transaction, nil
}

// GetProgressHistory returns the history entries for a user's task
func (s *TaskService) GetProgressHistory(userID, taskID uint) ([]models.TaskProgressEntry, error) {
	var userTask models.UserTask
	if err := s.db.Where("user_id = ? AND task_id = ?", userID, taskID).First(&userTask).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrTaskNotFound
		}
		return nil, err
	}

	var entries []models.TaskProgressEntry
	if err := s.db.Where("user_task_id = ?", userTask.ID).Order("created_at").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// CreateTask adds a new catalog task (admin only)
func (s *TaskService) CreateTask(task *models.Task) error {
	if task.MaxProgress < 1 {
		task.MaxProgress = 1
	}
	return s.db.Create(task).Error
}
