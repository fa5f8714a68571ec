package models

import "gorm.io/gorm"

// User is one authenticated identity. Authentication itself lives in the
// identity provider; we only store its stable subject id plus the user's
// daily macro targets. A nil target means the user never set one.
type User struct {
	gorm.Model
	ClerkID string `gorm:"uniqueIndex;not null"`

	CalorieTarget *float64
	ProteinTarget *float64
	CarbTarget    *float64
	FatTarget     *float64

	Images []Image
}
