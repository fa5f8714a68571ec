package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/fractal-bootcamp/bite-tracker/services"
)

type FoodController struct {
	Foods *services.FoodService
}

func NewFoodController(foods *services.FoodService) *FoodController {
	return &FoodController{Foods: foods}
}

type foodHistoryJSON struct {
	CalorieTarget *float64    `json:"calorieTarget"`
	ProteinTarget *float64    `json:"proteinTarget"`
	CarbTarget    *float64    `json:"carbTarget"`
	FatTarget     *float64    `json:"fatTarget"`
	Images        []imageJSON `json:"images"`
}

// GET /user-food-history
func (h *FoodController) GetUserFoodHistory(c *gin.Context) {
	clerkID, ok := clerkIDFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	history, err := h.Foods.GetFoodHistory(c.Request.Context(), clerkID)
	if err != nil {
		log.Error().Err(err).Str("clerkID", clerkID).Msg("failed to load food history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load food history"})
		return
	}

	out := foodHistoryJSON{
		CalorieTarget: history.Targets.Calories,
		ProteinTarget: history.Targets.Protein,
		CarbTarget:    history.Targets.Carbs,
		FatTarget:     history.Targets.Fat,
		Images:        make([]imageJSON, 0, len(history.Images)),
	}
	for i := range history.Images {
		out.Images = append(out.Images, toImageJSON(&history.Images[i]))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// GET /daily-summaries
//
// Server-side evaluation of the same pipeline the client runs: records
// bucketed by calendar day with totals and percent-of-target values.
// Recomputed on every read; nothing derived is cached.
func (h *FoodController) GetDailySummaries(c *gin.Context) {
	clerkID, ok := clerkIDFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	history, err := h.Foods.GetFoodHistory(c.Request.Context(), clerkID)
	if err != nil {
		log.Error().Err(err).Str("clerkID", clerkID).Msg("failed to load food history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load food history"})
		return
	}

	records := services.FlattenRecords(history.Images)
	summaries := services.BuildDailySummaries(records, history.Targets, time.Now())
	c.JSON(http.StatusOK, gin.H{"data": summaries})
}

// POST /update-targets
func (h *FoodController) UpdateTargets(c *gin.Context) {
	clerkID, ok := clerkIDFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		Calories float64 `json:"calories"`
		Protein  float64 `json:"protein"`
		Carbs    float64 `json:"carbs"`
		Fat      float64 `json:"fat"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	// Zero or negative means "not set"; a nil target suppresses the
	// percentage for that macro downstream.
	targets := services.MacroTargets{
		Calories: positiveOrNil(req.Calories),
		Protein:  positiveOrNil(req.Protein),
		Carbs:    positiveOrNil(req.Carbs),
		Fat:      positiveOrNil(req.Fat),
	}
	if err := h.Foods.UpdateTargets(c.Request.Context(), clerkID, targets); err != nil {
		log.Error().Err(err).Str("clerkID", clerkID).Msg("failed to update targets")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update targets"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"calorieTarget": targets.Calories,
		"proteinTarget": targets.Protein,
		"carbTarget":    targets.Carbs,
		"fatTarget":     targets.Fat,
	}})
}

// POST /update-food-item
func (h *FoodController) UpdateFoodItem(c *gin.Context) {
	clerkID, ok := clerkIDFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		ID       uint    `json:"id" binding:"required"`
		Calories float64 `json:"calories" binding:"min=0"`
		Carbs    float64 `json:"carbs" binding:"min=0"`
		Fat      float64 `json:"fat" binding:"min=0"`
		Protein  float64 `json:"protein" binding:"min=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	err := h.Foods.UpdateFoodItem(c.Request.Context(), clerkID, req.ID, req.Calories, req.Carbs, req.Fat, req.Protein)
	if errors.Is(err, services.ErrFoodItemNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "food item not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Uint("itemID", req.ID).Msg("failed to update food item")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update food item"})
		return
	}
	c.Status(http.StatusNoContent)
}

func positiveOrNil(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return &v
}
