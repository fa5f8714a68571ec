package models

import "gorm.io/gorm"

// Image is one photo submission (capture event) and owns the food items
// estimated from it.
type Image struct {
	gorm.Model
	UserID   uint   `gorm:"index;not null"`
	ImageURL string `gorm:"not null"`

	// Client-generated key so a retried upload doesn't append a second
	// capture. Empty when the client didn't send one.
	IdempotencyKey string `gorm:"size:64;index"`

	FoodItems []FoodItem
}
