package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyConsumption is one day of metered usage, unique per (account, date).
type DailyConsumption struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AccountID uint      `gorm:"uniqueIndex:idx_daily_account_date;not null" json:"accountId"`
	Date      time.Time `gorm:"uniqueIndex:idx_daily_account_date;not null" json:"date"`

	ConsumptionValue decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"consumptionValue"`
	Unit             string           `gorm:"size:10;not null;default:kWh" json:"unit"`
	Cost             *decimal.Decimal `gorm:"type:decimal(10,2)" json:"cost"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

// MonthlyConsumption is one calendar month of usage, unique per
// (account, year, month).
type MonthlyConsumption struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	AccountID uint `gorm:"uniqueIndex:idx_monthly_account_ym;not null" json:"accountId"`
	Year      int  `gorm:"uniqueIndex:idx_monthly_account_ym;not null" json:"year"`
	Month     int  `gorm:"uniqueIndex:idx_monthly_account_ym;not null" json:"month"`

	ConsumptionValue        decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"consumptionValue"`
	Unit                    string           `gorm:"size:10;not null;default:kWh" json:"unit"`
	Cost                    *decimal.Decimal `gorm:"type:decimal(10,2)" json:"cost"`
	AverageDailyConsumption *decimal.Decimal `gorm:"type:decimal(10,2)" json:"averageDailyConsumption"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}
