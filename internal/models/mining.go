package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MiningSessionStatus tracks a session's lifecycle
type MiningSessionStatus string

const (
	MiningStatusActive  MiningSessionStatus = "active"
	MiningStatusClaimed MiningSessionStatus = "claimed"
	MiningStatusExpired MiningSessionStatus = "expired"
)

// MiningSession is one timed mining run. A user has at most one active session;
// claiming pays rate * elapsed hours, capped at the session duration.
type MiningSession struct {
	ID          uint                `gorm:"primaryKey" json:"id"`
	UserID      uint                `gorm:"not null;index" json:"user_id"`
	User        *User               `gorm:"foreignKey:UserID" json:"user,omitempty"`
	RatePerHour decimal.Decimal     `gorm:"type:decimal(18,8);not null" json:"rate_per_hour"`
	StartedAt   time.Time           `gorm:"not null" json:"started_at"`
	EndsAt      time.Time           `gorm:"not null" json:"ends_at"`
	Status      MiningSessionStatus `gorm:"size:20;default:active;index" json:"status"`
	Earned      decimal.Decimal     `gorm:"type:decimal(18,8);default:0" json:"earned"`
	ClaimedAt   *time.Time          `json:"claimed_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

func (MiningSession) TableName() string {
	return "mining_sessions"
}
