package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// UtilityAccount is one registered prepaid account. The natural key is the
// (account_number, meter_number) pair; the surrogate ID exists only so child
// tables have something small to reference.
//
// A row with UserID == 0 was created by a balance fetch and has not been
// claimed through registration yet.
type UtilityAccount struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	AccountNumber string `gorm:"uniqueIndex:idx_account_meter;size:50;not null" json:"accountNo"`
	MeterNumber   string `gorm:"uniqueIndex:idx_account_meter;size:50;not null" json:"meterNo"`
	CustomerName  string `gorm:"size:100" json:"customerName"`
	Address       string `gorm:"size:500" json:"address"`
	PhoneNumber   string `gorm:"size:20" json:"phoneNumber"`
	Email         string `gorm:"size:100" json:"email"`

	CurrentBalance          decimal.Decimal `gorm:"type:decimal(10,2)" json:"currentBalance"`
	CurrentMonthConsumption decimal.Decimal `gorm:"type:decimal(10,2)" json:"currentMonthConsumption"`
	LastReadingTime         *time.Time      `json:"lastReadingTime"`

	IsVerified bool `gorm:"not null;default:false" json:"isVerified"`
	IsActive   bool `gorm:"not null;default:true" json:"isActive"`

	UserID uint `gorm:"index" json:"userId"`

	LastSyncAt *time.Time `json:"lastSyncAt"`
	CreatedAt  time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt  time.Time  `gorm:"not null" json:"updatedAt"`
}
