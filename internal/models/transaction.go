package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the closed set of ledger event kinds
type TransactionType string

const (
	TxTypeSend       TransactionType = "send"
	TxTypeReceive    TransactionType = "receive"
	TxTypeMining     TransactionType = "mining"
	TxTypeReferral   TransactionType = "referral"
	TxTypeExchange   TransactionType = "exchange"
	TxTypeBonus      TransactionType = "bonus"
	TxTypeTaskReward TransactionType = "task_reward"
)

// TransactionStatus tracks the lifecycle of a ledger entry
type TransactionStatus string

const (
	TxStatusPending   TransactionStatus = "pending"
	TxStatusCompleted TransactionStatus = "completed"
	TxStatusFailed    TransactionStatus = "failed"
	TxStatusCancelled TransactionStatus = "cancelled"
)

// Transaction is one append-only ledger entry. A peer-to-peer transfer is a
// single `send` record carrying both parties; "sent" vs "received" framing is
// derived at read time relative to the viewer, never stored twice.
type Transaction struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	Reference   string            `gorm:"uniqueIndex;size:36;not null" json:"reference"`
	Type        TransactionType   `gorm:"size:20;not null;index" json:"type"`
	Amount      decimal.Decimal   `gorm:"type:decimal(18,8);not null" json:"amount"`
	Fee         decimal.Decimal   `gorm:"type:decimal(18,8);default:0" json:"fee"`
	FromUserID  *uint             `gorm:"index" json:"from_user_id,omitempty"`
	FromUser    *User             `gorm:"foreignKey:FromUserID" json:"from_user,omitempty"`
	ToUserID    *uint             `gorm:"index" json:"to_user_id,omitempty"`
	ToUser      *User             `gorm:"foreignKey:ToUserID" json:"to_user,omitempty"`
	Status      TransactionStatus `gorm:"size:20;default:completed;index" json:"status"`
	Description string            `gorm:"type:text" json:"description"`
	CreatedAt   time.Time         `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for Transaction model
func (Transaction) TableName() string {
	return "transactions"
}

// TransactionView is a Transaction framed from one viewer's perspective, as
// returned by the history endpoint.
type TransactionView struct {
	Transaction
	Direction    string `json:"direction"` // sent, received, credit
	Counterparty string `json:"counterparty,omitempty"`
}
