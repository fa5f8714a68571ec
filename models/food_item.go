package models

import "gorm.io/gorm"

// FoodItem is one estimated food item detected in a capture. Macro values
// the vision model omitted are stored as 0. Rows are immutable except for
// the user-initiated macro correction.
type FoodItem struct {
	gorm.Model
	ImageID uint   `gorm:"index;not null"`
	Name    string `gorm:"not null"`

	Calories float64
	Carbs    float64
	Fat      float64
	Protein  float64
}
