package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Location is a customer service address. Reconciled per sync by
// (account, full_address).
type Location struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	AccountID uint `gorm:"index;not null" json:"accountId"`

	Division    string `gorm:"size:100" json:"division"`
	District    string `gorm:"size:100" json:"district"`
	Thana       string `gorm:"size:100" json:"thana"`
	Area        string `gorm:"size:100" json:"area"`
	PostCode    string `gorm:"size:20" json:"postCode"`
	FullAddress string `gorm:"size:500" json:"fullAddress"`

	Latitude  *decimal.Decimal `gorm:"type:decimal(10,6)" json:"latitude"`
	Longitude *decimal.Decimal `gorm:"type:decimal(10,6)" json:"longitude"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}
