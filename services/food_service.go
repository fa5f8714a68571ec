package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/fractal-bootcamp/bite-tracker/models"
)

// ErrFoodItemNotFound is returned when a macro correction targets a
// record the caller doesn't own (or that doesn't exist).
var ErrFoodItemNotFound = errors.New("food item not found")

type FoodService struct {
	db *gorm.DB
}

func NewFoodService(db *gorm.DB) *FoodService { return &FoodService{db: db} }

// FoodHistory is the read-side payload for one user: their targets plus
// every capture with its nested food items, newest first.
type FoodHistory struct {
	Targets MacroTargets
	Images  []models.Image
}

// SaveFoodData persists one capture event with its estimated items. An
// empty or nil item list is a no-op returning (nil, nil): nothing was
// detected, nothing gets stored, and that is not an error. When the
// client supplied an idempotency key and a capture with that key already
// exists, the original capture is returned instead of appending a
// duplicate.
func (s *FoodService) SaveFoodData(ctx context.Context, clerkID, imageURL, idempotencyKey string, items []FoodEstimate) (*models.Image, error) {
	if len(items) == 0 {
		return nil, nil
	}

	user, err := s.ensureUser(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	if idempotencyKey != "" {
		var existing models.Image
		err := s.db.WithContext(ctx).
			Preload("FoodItems").
			Where("user_id = ? AND idempotency_key = ?", user.ID, idempotencyKey).
			First(&existing).Error
		if err == nil {
			return &existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("check idempotency key: %w", err)
		}
	}

	image := models.Image{
		UserID:         user.ID,
		ImageURL:       imageURL,
		IdempotencyKey: idempotencyKey,
	}
	for _, it := range items {
		image.FoodItems = append(image.FoodItems, models.FoodItem{
			Name:     it.Name,
			Calories: it.Calories,
			Carbs:    it.Carbs,
			Fat:      it.Fat,
			Protein:  it.Protein,
		})
	}

	if err := s.db.WithContext(ctx).Create(&image).Error; err != nil {
		return nil, fmt.Errorf("save capture: %w", err)
	}
	return &image, nil
}

// GetFoodHistory returns the user's captures (newest first, items newest
// first within each) and targets. An unknown user gets an empty history
// with unset targets, not an error.
func (s *FoodService) GetFoodHistory(ctx context.Context, clerkID string) (*FoodHistory, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("clerk_id = ?", clerkID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &FoodHistory{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	var images []models.Image
	err = s.db.WithContext(ctx).
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Preload("FoodItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("food_items.created_at DESC")
		}).
		Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("load captures: %w", err)
	}

	return &FoodHistory{
		Targets: MacroTargets{
			Calories: user.CalorieTarget,
			Protein:  user.ProteinTarget,
			Carbs:    user.CarbTarget,
			Fat:      user.FatTarget,
		},
		Images: images,
	}, nil
}

// UpdateTargets upserts the user's daily targets. Nil fields clear the
// corresponding target.
func (s *FoodService) UpdateTargets(ctx context.Context, clerkID string, targets MacroTargets) error {
	user, err := s.ensureUser(ctx, clerkID)
	if err != nil {
		return err
	}

	updates := map[string]any{
		"calorie_target": targets.Calories,
		"protein_target": targets.Protein,
		"carb_target":    targets.Carbs,
		"fat_target":     targets.Fat,
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return fmt.Errorf("update targets: %w", err)
	}
	return nil
}

// UpdateFoodItem applies a macro correction to one record the caller
// owns. The four values replace the stored ones wholesale.
func (s *FoodService) UpdateFoodItem(ctx context.Context, clerkID string, itemID uint, calories, carbs, fat, protein float64) error {
	res := s.db.WithContext(ctx).
		Model(&models.FoodItem{}).
		Where("food_items.id = ?", itemID).
		Where("image_id IN (?)", s.db.
			Model(&models.Image{}).
			Select("images.id").
			Joins("JOIN users ON users.id = images.user_id").
			Where("users.clerk_id = ?", clerkID),
		).
		Updates(map[string]any{
			"calories": calories,
			"carbs":    carbs,
			"fat":      fat,
			"protein":  protein,
		})
	if res.Error != nil {
		return fmt.Errorf("update food item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrFoodItemNotFound
	}
	return nil
}

// ensureUser fetches or creates the row for an external identity.
func (s *FoodService) ensureUser(ctx context.Context, clerkID string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where(models.User{ClerkID: clerkID}).
		FirstOrCreate(&user).Error
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	return &user, nil
}
