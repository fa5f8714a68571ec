package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/fractal-bootcamp/bite-tracker/config"
	"github.com/fractal-bootcamp/bite-tracker/controllers"
	"github.com/fractal-bootcamp/bite-tracker/middlewares"
)

func SetupRouter(cfg *config.Config, upload *controllers.UploadController, food *controllers.FoodController) *gin.Engine {
	r := gin.Default()

	if cfg.GinMode == gin.DebugMode {
		dev := &controllers.DevController{JWTSecret: cfg.JWTSecret}
		r.POST("/dev/token", dev.MintToken)
	}

	api := r.Group("/")
	api.Use(middlewares.AuthMiddleware(cfg.JWTSecret))
	{
		api.POST("/upload", upload.UploadImage)
		api.GET("/user-food-history", food.GetUserFoodHistory)
		api.GET("/daily-summaries", food.GetDailySummaries)
		api.POST("/update-targets", food.UpdateTargets)
		api.POST("/update-food-item", food.UpdateFoodItem)
	}

	return r
}
