package model

import "time"

// PushSubscription holds the information for a browser push subscription.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey;size:512"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Tanks []SubscribedTank `gorm:"foreignKey:Endpoint;references:Endpoint;constraint:OnDelete:CASCADE"`
}

// SubscribedTank links a subscription to a deposit whose availability it follows.
// Deposits live in the winery backend, so only their id is kept here.
type SubscribedTank struct {
	Endpoint  string `gorm:"primaryKey;size:512"`
	DepositID int64  `gorm:"primaryKey;index"`
}
