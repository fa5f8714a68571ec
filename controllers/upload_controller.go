package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/fractal-bootcamp/bite-tracker/services"
	"github.com/fractal-bootcamp/bite-tracker/utils"
)

// Stored when no object storage is configured, matching the dev setup
// where photos are analyzed but not retained.
const placeholderImageURL = "https://example.com/image.jpg"

type visionAnalyzer interface {
	AnalyzeImage(ctx context.Context, dataURI string) ([]services.FoodEstimate, error)
}

type foodGate interface {
	ContainsFood(ctx context.Context, image []byte) (bool, error)
}

type photoUploader interface {
	UploadDataURI(ctx context.Context, dataURI, prefix string) (string, error)
}

// UploadController owns the ingestion path: photo in, structured food
// records out. Gate and Uploads are optional and skipped when nil.
type UploadController struct {
	Foods   *services.FoodService
	Vision  visionAnalyzer
	Gate    foodGate
	Uploads photoUploader
}

func NewUploadController(foods *services.FoodService, vision visionAnalyzer) *UploadController {
	return &UploadController{Foods: foods, Vision: vision}
}

// POST /upload  {"image": "data:image/jpeg;base64,..."}
func (h *UploadController) UploadImage(c *gin.Context) {
	clerkID, ok := clerkIDFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		Image string `json:"image" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image data received."})
		return
	}

	_, imageBytes, err := utils.DecodeDataURI(req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image data"})
		return
	}

	ctx := c.Request.Context()

	if h.Gate != nil {
		hasFood, err := h.Gate.ContainsFood(ctx, imageBytes)
		if err != nil {
			// The gate is an optimization, not a gatekeeper of
			// correctness. Fall through to the vision model.
			log.Warn().Err(err).Msg("food gate unavailable, skipping")
		} else if !hasFood {
			c.JSON(http.StatusOK, gin.H{"message": "No food detected", "data": nil})
			return
		}
	}

	items, err := h.Vision.AnalyzeImage(ctx, req.Image)
	if err != nil {
		log.Error().Err(err).Msg("vision analysis failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "food analysis failed"})
		return
	}
	if len(items) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "No food detected", "data": nil})
		return
	}

	imageURL := placeholderImageURL
	if h.Uploads != nil {
		url, err := h.Uploads.UploadDataURI(ctx, req.Image, "captures/"+clerkID)
		if err != nil {
			// The nutrition estimate is the capture's payload; losing
			// the photo itself is survivable.
			log.Warn().Err(err).Msg("photo upload failed, storing placeholder URL")
		} else {
			imageURL = url
		}
	}

	image, err := h.Foods.SaveFoodData(ctx, clerkID, imageURL, c.GetHeader("Idempotency-Key"), items)
	if err != nil {
		log.Error().Err(err).Str("clerkID", clerkID).Msg("failed to save capture")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save food data"})
		return
	}

	out := toImageJSON(image)
	c.JSON(http.StatusOK, gin.H{"message": "Image uploaded", "data": out})
}
