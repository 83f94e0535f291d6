package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds a user's token balances, split into buckets. Exactly one wallet
// exists per user. TotalBalance is always recomputed as the sum of the three
// buckets, never written independently.
type Wallet struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	UserID             uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	User               *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	SendableBalance    decimal.Decimal `gorm:"type:decimal(18,8);default:0" json:"sendable_balance"`
	NonSendableBalance decimal.Decimal `gorm:"type:decimal(18,8);default:0" json:"non_sendable_balance"`
	PendingBalance     decimal.Decimal `gorm:"type:decimal(18,8);default:0" json:"pending_balance"`
	TotalBalance       decimal.Decimal `gorm:"type:decimal(18,8);default:0" json:"total_balance"`
	CurrentAddress     string          `gorm:"uniqueIndex;size:64" json:"current_address"`
	Addresses          []WalletAddress `gorm:"foreignKey:WalletID" json:"addresses,omitempty"`
	TotalSent          decimal.Decimal `gorm:"type:decimal(18,8);default:0" json:"total_sent"`
	TotalReceived      decimal.Decimal `gorm:"type:decimal(18,8);default:0" json:"total_received"`
	TotalMined         decimal.Decimal `gorm:"type:decimal(18,8);default:0" json:"total_mined"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Wallet model
func (Wallet) TableName() string {
	return "wallets"
}

// RecomputeTotal refreshes TotalBalance from the three buckets
func (w *Wallet) RecomputeTotal() {
	w.TotalBalance = w.SendableBalance.Add(w.NonSendableBalance).Add(w.PendingBalance)
}

// WalletAddress is one entry of a wallet's ordered address list. One entry per
// wallet carries IsDefault and is mirrored into Wallet.CurrentAddress.
type WalletAddress struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	WalletID  uint      `gorm:"not null;index" json:"wallet_id"`
	Address   string    `gorm:"uniqueIndex;size:64;not null" json:"address"`
	Label     string    `gorm:"size:50" json:"label"`
	IsDefault bool      `gorm:"default:false" json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

func (WalletAddress) TableName() string {
	return "wallet_addresses"
}
