// Package client is the non-UI core of the mobile app: an HTTP adapter
// for the backend plus an in-memory session that holds the food history,
// runs the day-bucket aggregation, and implements the optimistic
// macro-edit flow.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/fractal-bootcamp/bite-tracker/services"
)

var (
	// ErrNoToken means no identity-provider token is available. Callers
	// treat this as "unauthenticated, show nothing", not as a failure.
	ErrNoToken = errors.New("no auth token set")

	ErrUnauthorized = errors.New("unauthorized")
)

// FoodItem mirrors the wire shape of one food record.
type FoodItem struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Calories  float64   `json:"calories"`
	Carbs     float64   `json:"carbs"`
	Fat       float64   `json:"fat"`
	Protein   float64   `json:"protein"`
	CreatedAt time.Time `json:"createdAt"`
}

// CaptureImage is one photo submission with its detected items.
type CaptureImage struct {
	ID        uint       `json:"id"`
	ImageURL  string     `json:"imageUrl"`
	CreatedAt time.Time  `json:"createdAt"`
	FoodItems []FoodItem `json:"foodItems"`
}

// FoodHistory is the full read payload: targets plus captures.
type FoodHistory struct {
	CalorieTarget *float64       `json:"calorieTarget"`
	ProteinTarget *float64       `json:"proteinTarget"`
	CarbTarget    *float64       `json:"carbTarget"`
	FatTarget     *float64       `json:"fatTarget"`
	Images        []CaptureImage `json:"images"`
}

// Targets is the write shape for daily goals.
type Targets struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// Macros carries the four nutrition values of one record.
type Macros struct {
	Calories float64 `json:"calories"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Protein  float64 `json:"protein"`
}

// UploadResult is the ingestion response; Capture is nil when the photo
// contained no food.
type UploadResult struct {
	Message string        `json:"message"`
	Capture *CaptureImage `json:"data"`
}

// API talks to the backend. The identity-provider token is set from the
// outside whenever the provider refreshes it.
type API struct {
	http *resty.Client

	mu    sync.RWMutex
	token string
}

func NewAPI(baseURL string) *API {
	return &API{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(15 * time.Second),
	}
}

// SetToken stores the bearer token for subsequent requests. An empty
// string returns the adapter to the unauthenticated state.
func (a *API) SetToken(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = strings.TrimSpace(token)
}

func (a *API) bearer() (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.token == "" {
		return "", ErrNoToken
	}
	return a.token, nil
}

// FetchFoodHistory loads the caller's captures and targets.
func (a *API) FetchFoodHistory(ctx context.Context) (*FoodHistory, error) {
	token, err := a.bearer()
	if err != nil {
		return nil, err
	}

	var body struct {
		Data FoodHistory `json:"data"`
	}
	resp, err := a.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&body).
		Get("/user-food-history")
	if err != nil {
		return nil, fmt.Errorf("fetch food history: %w", err)
	}
	if err := apiError(resp); err != nil {
		return nil, err
	}
	return &body.Data, nil
}

// UpdateTargets persists the four daily goals.
func (a *API) UpdateTargets(ctx context.Context, targets Targets) error {
	token, err := a.bearer()
	if err != nil {
		return err
	}

	resp, err := a.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(targets).
		Post("/update-targets")
	if err != nil {
		return fmt.Errorf("update targets: %w", err)
	}
	return apiError(resp)
}

// UpdateFoodItem submits a macro correction for one record.
func (a *API) UpdateFoodItem(ctx context.Context, id uint, m Macros) error {
	token, err := a.bearer()
	if err != nil {
		return err
	}

	body := struct {
		ID uint `json:"id"`
		Macros
	}{ID: id, Macros: m}

	resp, err := a.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(body).
		Post("/update-food-item")
	if err != nil {
		return fmt.Errorf("update food item: %w", err)
	}
	return apiError(resp)
}

// UploadPhoto submits a base64 data URI for analysis. Each call carries a
// fresh idempotency key so a retried request cannot append the capture
// twice.
func (a *API) UploadPhoto(ctx context.Context, dataURI string) (*UploadResult, error) {
	token, err := a.bearer()
	if err != nil {
		return nil, err
	}

	var result UploadResult
	resp, err := a.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Idempotency-Key", uuid.NewString()).
		SetBody(map[string]string{"image": dataURI}).
		SetResult(&result).
		Post("/upload")
	if err != nil {
		return nil, fmt.Errorf("upload photo: %w", err)
	}
	if err := apiError(resp); err != nil {
		return nil, err
	}
	return &result, nil
}

func apiError(resp *resty.Response) error {
	switch {
	case resp.StatusCode() < 300:
		return nil
	case resp.StatusCode() == 401:
		return ErrUnauthorized
	default:
		return fmt.Errorf("server returned %d: %s", resp.StatusCode(), resp.String())
	}
}

// Summaries runs the shared aggregation pipeline over a history snapshot.
func (h *FoodHistory) Summaries(now time.Time) []services.DaySummary {
	if h == nil {
		return nil
	}
	var records []services.FoodRecord
	for _, img := range h.Images {
		for _, it := range img.FoodItems {
			records = append(records, services.FoodRecord{
				ID:        it.ID,
				Name:      it.Name,
				Calories:  it.Calories,
				Carbs:     it.Carbs,
				Fat:       it.Fat,
				Protein:   it.Protein,
				CreatedAt: it.CreatedAt,
			})
		}
	}
	targets := services.MacroTargets{
		Calories: h.CalorieTarget,
		Protein:  h.ProteinTarget,
		Carbs:    h.CarbTarget,
		Fat:      h.FatTarget,
	}
	return services.BuildDailySummaries(records, targets, now)
}
