package services

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

// RekognitionService is an optional pre-filter in front of the vision
// model: a cheap label detection that answers "is there food in this
// photo at all" before the expensive nutrition call.
type RekognitionService struct {
	client *rekognition.Client
}

func NewRekognitionService(ctx context.Context, region string) (*RekognitionService, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &RekognitionService{client: rekognition.NewFromConfig(cfg)}, nil
}

var foodLabels = map[string]bool{
	"Food":      true,
	"Meal":      true,
	"Dish":      true,
	"Beverage":  true,
	"Drink":     true,
	"Fruit":     true,
	"Vegetable": true,
	"Dessert":   true,
	"Snack":     true,
	"Bread":     true,
}

// ContainsFood runs DetectLabels over the raw image bytes and reports
// whether any food-related label (or parent label) was found.
func (r *RekognitionService) ContainsFood(ctx context.Context, image []byte) (bool, error) {
	out, err := r.client.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: image},
		MaxLabels:     aws.Int32(10),
		MinConfidence: aws.Float32(70),
	})
	if err != nil {
		return false, fmt.Errorf("detect labels: %w", err)
	}

	for _, l := range out.Labels {
		if l.Name != nil && foodLabels[*l.Name] {
			return true, nil
		}
		for _, p := range l.Parents {
			if p.Name != nil && foodLabels[*p.Name] {
				return true, nil
			}
		}
	}
	return false, nil
}
