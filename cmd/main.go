package main

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fractal-bootcamp/bite-tracker/config"
	"github.com/fractal-bootcamp/bite-tracker/controllers"
	"github.com/fractal-bootcamp/bite-tracker/routes"
	"github.com/fractal-bootcamp/bite-tracker/services"
	"github.com/fractal-bootcamp/bite-tracker/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if cfg.GinMode == gin.DebugMode {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	gin.SetMode(cfg.GinMode)

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database init failed")
	}

	foods := services.NewFoodService(db)
	vision := services.NewVisionService(cfg.AnthropicAPIKey, cfg.AnthropicModel)

	upload := controllers.NewUploadController(foods, vision)
	if cfg.FoodGate && cfg.AWSRegion != "" {
		gate, err := services.NewRekognitionService(context.Background(), cfg.AWSRegion)
		if err != nil {
			log.Fatal().Err(err).Msg("rekognition init failed")
		}
		upload.Gate = gate
	}
	if cfg.S3Bucket != "" {
		uploader, err := utils.NewS3Uploader(context.Background(), cfg.AWSRegion, cfg.S3Bucket, cfg.CloudFrontURL)
		if err != nil {
			log.Fatal().Err(err).Msg("S3 init failed")
		}
		upload.Uploads = uploader
	}

	r := routes.SetupRouter(cfg, upload, controllers.NewFoodController(foods))

	log.Info().Str("port", cfg.Port).Msg("starting server")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
