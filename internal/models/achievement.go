package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Achievement is a milestone catalog entry (admin-authored)
type Achievement struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Title       string          `gorm:"size:100;not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	Icon        string          `gorm:"size:100" json:"icon"`
	Category    string          `gorm:"size:50;index" json:"category"` // transfer, mining, social
	MaxProgress int             `gorm:"not null" json:"max_progress"`
	Reward      decimal.Decimal `gorm:"type:decimal(18,8);not null" json:"reward"`
	IsActive    bool            `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (Achievement) TableName() string {
	return "achievements"
}

// UserAchievement mirrors UserTask for achievements
type UserAchievement struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	UserID          uint         `gorm:"not null;index:idx_user_achievement,unique" json:"user_id"`
	User            *User        `gorm:"foreignKey:UserID" json:"user,omitempty"`
	AchievementID   uint         `gorm:"not null;index:idx_user_achievement,unique" json:"achievement_id"`
	Achievement     *Achievement `gorm:"foreignKey:AchievementID" json:"achievement,omitempty"`
	Progress        int          `gorm:"default:0" json:"progress"`
	IsCompleted     bool         `gorm:"default:false" json:"is_completed"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
	RewardClaimed   bool         `gorm:"default:false" json:"reward_claimed"`
	RewardClaimedAt *time.Time   `json:"reward_claimed_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

func (UserAchievement) TableName() string {
	return "user_achievements"
}

// AchievementProgressEntry is one row of a user achievement's progress history
type AchievementProgressEntry struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserAchievementID uint      `gorm:"not null;index" json:"user_achievement_id"`
	Progress          int       `gorm:"not null" json:"progress"`
	Source            string    `gorm:"size:50" json:"source"` // transfer, mining, manual
	Details           string    `gorm:"type:text" json:"details,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

func (AchievementProgressEntry) TableName() string {
	return "achievement_progress_entries"
}
