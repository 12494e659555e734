package model

import "time"

// RecentEvent is a provider notification for an account. Rows always ingest
// unread. The feed carries no identifier, so (account, event_date, type,
// message) serves as the dedup key across syncs.
type RecentEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AccountID uint      `gorm:"uniqueIndex:idx_event_natural;not null" json:"accountId"`
	EventDate time.Time `gorm:"uniqueIndex:idx_event_natural;not null" json:"eventDate"`
	EventType string    `gorm:"uniqueIndex:idx_event_natural;size:100;not null" json:"eventType"`
	Message   string    `gorm:"uniqueIndex:idx_event_natural;size:500;not null" json:"message"`

	Category string `gorm:"size:50" json:"category"`
	Priority string `gorm:"size:20" json:"priority"`
	IsRead   bool   `gorm:"not null;default:false" json:"isRead"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}
