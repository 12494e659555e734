package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recharge is one prepaid top-up. The provider feed has no declared key, so
// repeated syncs would otherwise duplicate rows without bound; we key on
// (account, recharge_date, transaction_id) instead.
type Recharge struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	AccountID     uint      `gorm:"uniqueIndex:idx_recharge_natural;not null" json:"accountId"`
	RechargeDate  time.Time `gorm:"uniqueIndex:idx_recharge_natural;not null" json:"rechargeDate"`
	TransactionID string    `gorm:"uniqueIndex:idx_recharge_natural;size:50" json:"transactionId"`

	Amount        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	PaymentMethod string          `gorm:"size:50" json:"paymentMethod"`
	Notes         string          `gorm:"size:500" json:"notes"`
	Status        string          `gorm:"size:20" json:"status"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}
