package controllers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fractal-bootcamp/bite-tracker/middlewares"
	"github.com/fractal-bootcamp/bite-tracker/models"
)

func clerkIDFromCtx(c *gin.Context) (string, bool) {
	v, ok := c.Get(middlewares.ClerkIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// Wire DTOs. GORM models are never serialized directly so the JSON field
// names stay stable regardless of schema changes.

type foodItemJSON struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Calories  float64   `json:"calories"`
	Carbs     float64   `json:"carbs"`
	Fat       float64   `json:"fat"`
	Protein   float64   `json:"protein"`
	CreatedAt time.Time `json:"createdAt"`
}

type imageJSON struct {
	ID        uint           `json:"id"`
	ImageURL  string         `json:"imageUrl"`
	CreatedAt time.Time      `json:"createdAt"`
	FoodItems []foodItemJSON `json:"foodItems"`
}

func toImageJSON(img *models.Image) imageJSON {
	out := imageJSON{
		ID:        img.ID,
		ImageURL:  img.ImageURL,
		CreatedAt: img.CreatedAt,
		FoodItems: make([]foodItemJSON, 0, len(img.FoodItems)),
	}
	for _, it := range img.FoodItems {
		out.FoodItems = append(out.FoodItems, foodItemJSON{
			ID:        it.ID,
			Name:      it.Name,
			Calories:  it.Calories,
			Carbs:     it.Carbs,
			Fat:       it.Fat,
			Protein:   it.Protein,
			CreatedAt: it.CreatedAt,
		})
	}
	return out
}
