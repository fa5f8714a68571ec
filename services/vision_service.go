package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fractal-bootcamp/bite-tracker/utils"
)

// FoodEstimate is one food item the vision model detected, with macro
// values defaulted to 0 when the model omitted them.
type FoodEstimate struct {
	Name     string  `json:"name"`
	Calories float64 `json:"calories"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Protein  float64 `json:"protein"`
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// VisionService asks the Anthropic messages API for per-item nutrition
// estimates of a photographed meal.
type VisionService struct {
	apiKey  string
	model   string
	baseURL string
	client  httpDoer
}

func NewVisionService(apiKey, model string) *VisionService {
	return &VisionService{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.anthropic.com/v1",
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// SetBaseURL overrides the API endpoint, used by tests.
func (s *VisionService) SetBaseURL(base string) {
	s.baseURL = strings.TrimRight(strings.TrimSpace(base), "/")
}

// SetHTTPClient swaps the underlying HTTP client, used by tests.
func (s *VisionService) SetHTTPClient(client httpDoer) {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	s.client = client
}

const visionPrompt = `Analyze this image and if it contains food, provide nutritional estimates in the following JSON format:
{
  "foodItems": [{
    "name": string,
    "calories": number,
    "carbs": number,
    "fat": number,
    "protein": number
  }]
}

If the image doesn't contain food, return { "foodItems": null }.
Only return the JSON, no additional text.`

type visionImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type visionContentBlock struct {
	Type   string             `json:"type"`
	Text   string             `json:"text,omitempty"`
	Source *visionImageSource `json:"source,omitempty"`
}

type visionMessage struct {
	Role    string               `json:"role"`
	Content []visionContentBlock `json:"content"`
}

type visionMessageRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []visionMessage `json:"messages"`
}

type visionMessageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// AnalyzeImage sends a base64 data URI to the vision model and returns
// the detected food items. A "no food" verdict and a malformed model
// reply both come back as (nil, nil): the ingestion path treats them as
// nothing to save, not as failures.
func (s *VisionService) AnalyzeImage(ctx context.Context, dataURI string) ([]FoodEstimate, error) {
	mediaType, payload, err := utils.SplitDataURI(dataURI)
	if err != nil {
		return nil, err
	}
	switch mediaType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
	default:
		return nil, fmt.Errorf("unsupported image format %q", mediaType)
	}

	req := visionMessageRequest{
		Model:     s.model,
		MaxTokens: 1024,
		Messages: []visionMessage{{
			Role: "user",
			Content: []visionContentBlock{
				{Type: "image", Source: &visionImageSource{Type: "base64", MediaType: mediaType, Data: payload}},
				{Type: "text", Text: visionPrompt},
			},
		}},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal vision request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create vision request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", s.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call vision API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read vision response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var vr visionMessageResponse
		if json.Unmarshal(respBody, &vr) == nil && vr.Error.Message != "" {
			return nil, fmt.Errorf("vision API error %d: %s", resp.StatusCode, vr.Error.Message)
		}
		return nil, fmt.Errorf("vision API error %d", resp.StatusCode)
	}

	var vr visionMessageResponse
	if err := json.Unmarshal(respBody, &vr); err != nil {
		return nil, fmt.Errorf("parse vision response: %w", err)
	}

	var text string
	for _, block := range vr.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	return parseFoodEstimates(text), nil
}

// parseFoodEstimates reads the model's JSON verdict. Anything that
// doesn't match the expected shape is "no food detected" rather than an
// error: the model free-texting instead of returning JSON must not crash
// ingestion.
func parseFoodEstimates(text string) []FoodEstimate {
	var verdict struct {
		FoodItems []struct {
			Name     string   `json:"name"`
			Calories *float64 `json:"calories"`
			Carbs    *float64 `json:"carbs"`
			Fat      *float64 `json:"fat"`
			Protein  *float64 `json:"protein"`
		} `json:"foodItems"`
	}
	if err := json.Unmarshal([]byte(text), &verdict); err != nil {
		log.Warn().Str("text", text).Msg("vision model returned a non-JSON verdict, treating as no food")
		return nil
	}
	if len(verdict.FoodItems) == 0 {
		return nil
	}

	items := make([]FoodEstimate, 0, len(verdict.FoodItems))
	for _, it := range verdict.FoodItems {
		if it.Name == "" {
			continue
		}
		items = append(items, FoodEstimate{
			Name:     it.Name,
			Calories: deref(it.Calories),
			Carbs:    deref(it.Carbs),
			Fat:      deref(it.Fat),
			Protein:  deref(it.Protein),
		})
	}
	return items
}

func deref(v *float64) float64 {
	if v == nil || *v < 0 {
		return 0
	}
	return *v
}
