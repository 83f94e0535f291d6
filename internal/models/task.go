package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Task is an admin-authored catalog entry users can earn rewards from
type Task struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Title       string          `gorm:"size:100;not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	Category    string          `gorm:"size:50;index" json:"category"` // daily, social, transfer, mining
	MaxProgress int             `gorm:"not null" json:"max_progress"`
	Reward      decimal.Decimal `gorm:"type:decimal(18,8);not null" json:"reward"`
	IsActive    bool            `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Task model
func (Task) TableName() string {
	return "tasks"
}

// UserTask is the per-user progress record against one catalog Task.
// Progress is monotonic and the claim flags are one-way.
type UserTask struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserID          uint       `gorm:"not null;index:idx_user_task,unique" json:"user_id"`
	User            *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	TaskID          uint       `gorm:"not null;index:idx_user_task,unique" json:"task_id"`
	Task            *Task      `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	Progress        int        `gorm:"default:0" json:"progress"`
	IsCompleted     bool       `gorm:"default:false" json:"is_completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	RewardClaimed   bool       `gorm:"default:false" json:"reward_claimed"`
	RewardClaimedAt *time.Time `json:"reward_claimed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (UserTask) TableName() string {
	return "user_tasks"
}

// TaskProgressEntry is one row of a user task's progress history
type TaskProgressEntry struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserTaskID uint      `gorm:"not null;index" json:"user_task_id"`
	Progress   int       `gorm:"not null" json:"progress"`
	Source     string    `gorm:"size:50" json:"source"` // transfer, mining, manual
	Details    string    `gorm:"type:text" json:"details,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (TaskProgressEntry) TableName() string {
	return "task_progress_entries"
}
