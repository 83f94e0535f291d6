package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReferralCode represents a unique referral code for a user
type ReferralCode struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Code      string    `gorm:"uniqueIndex;size:20;not null" json:"code"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (ReferralCode) TableName() string {
	return "referral_codes"
}

// ReferralStatus tracks a referral record's lifecycle
type ReferralStatus string

const (
	ReferralStatusPending   ReferralStatus = "pending"
	ReferralStatusCompleted ReferralStatus = "completed"
	ReferralStatusRewarded  ReferralStatus = "rewarded"
)

// Referral links a referrer to one referred user. Uniqueness is enforced on
// the referee side: a user can be referred at most once.
type Referral struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	ReferrerID     uint            `gorm:"not null;index" json:"referrer_id"`
	Referrer       *User           `gorm:"foreignKey:ReferrerID" json:"referrer,omitempty"`
	RefereeID      uint            `gorm:"uniqueIndex;not null" json:"referee_id"`
	Referee        *User           `gorm:"foreignKey:RefereeID" json:"referee,omitempty"`
	Code           string          `gorm:"size:20" json:"code"`
	Status         ReferralStatus  `gorm:"size:20;default:pending;index" json:"status"`
	ReferrerReward decimal.Decimal `gorm:"type:decimal(18,8);not null" json:"referrer_reward"`
	RefereeReward  decimal.Decimal `gorm:"type:decimal(18,8);not null" json:"referee_reward"`
	ReferrerGiven  bool            `gorm:"default:false" json:"referrer_given"`
	ReferrerPaidAt *time.Time      `json:"referrer_paid_at,omitempty"`
	RefereeGiven   bool            `gorm:"default:false" json:"referee_given"`
	RefereePaidAt  *time.Time      `json:"referee_paid_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (Referral) TableName() string {
	return "referrals"
}

// ReferralStats holds aggregated referral statistics for a user
type ReferralStats struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	UserID           uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	User             *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	TotalReferrals   int             `gorm:"default:0" json:"total_referrals"`
	RewardedCount    int             `gorm:"default:0" json:"rewarded_count"`
	TotalRewardsPaid decimal.Decimal `gorm:"type:decimal(18,8);default:0" json:"total_rewards_paid"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (ReferralStats) TableName() string {
	return "referral_stats"
}
