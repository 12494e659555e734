package model

import "time"

// PushSubscription holds the information for a browser push subscription.
// A subscription follows one or more utility accounts.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey" json:"endpoint"`
	P256DH    string    `gorm:"column:p256dh;not null" json:"p256dh"`
	Auth      string    `gorm:"not null" json:"auth"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`

	// Associations
	Accounts []*UtilityAccount `gorm:"many2many:subscription_account_mapping;" json:"accounts,omitempty"`
}
