package model

import "time"

// Shipment is a grape delivery a client has started recording but not yet
// assigned to a tank.
type Shipment struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	ClientID  string    `gorm:"index;size:128;not null" json:"-"`
	Supplier  string    `gorm:"size:256;not null" json:"supplier"`
	Variety   string    `gorm:"size:128;not null" json:"variety"`
	WeightKg  float64   `gorm:"not null" json:"weightKg"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
}
