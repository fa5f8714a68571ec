package services

import (
	"math"
	"sort"
	"time"

	"github.com/fractal-bootcamp/bite-tracker/models"
	"github.com/fractal-bootcamp/bite-tracker/utils"
)

// FoodRecord is the flat, read-side view of one food item that the
// day-bucketed pipeline consumes.
type FoodRecord struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Calories  float64   `json:"calories"`
	Carbs     float64   `json:"carbs"`
	Fat       float64   `json:"fat"`
	Protein   float64   `json:"protein"`
	CreatedAt time.Time `json:"createdAt"`
}

// MacroTargets are the user's daily goals. A nil field means the target
// was never set.
type MacroTargets struct {
	Calories *float64 `json:"calorieTarget"`
	Protein  *float64 `json:"proteinTarget"`
	Carbs    *float64 `json:"carbTarget"`
	Fat      *float64 `json:"fatTarget"`
}

// MacroTotals are the per-bucket sums.
type MacroTotals struct {
	Calories float64 `json:"calories"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Protein  float64 `json:"protein"`
}

// MacroPercentages are per-bucket percent-of-target values. A macro whose
// target is unset or zero stays nil ("target not set") so NaN and Inf
// never reach a caller.
type MacroPercentages struct {
	Calories *float64 `json:"calories"`
	Carbs    *float64 `json:"carbs"`
	Fat      *float64 `json:"fat"`
	Protein  *float64 `json:"protein"`
}

// DaySummary is one day bucket of the aggregated history.
type DaySummary struct {
	Label       string           `json:"label"`
	Date        time.Time        `json:"date"`
	Records     []FoodRecord     `json:"records"`
	Totals      MacroTotals      `json:"totals"`
	Percentages MacroPercentages `json:"percentages"`
}

// BuildDailySummaries groups records into calendar-day buckets relative
// to now, sums each bucket's macros and computes percent-of-target
// values. Buckets are ordered by date descending, records within a
// bucket most-recent-first with name as the tiebreaker. The result is
// deterministic for a given (records, targets, now) regardless of input
// order, and empty input yields an empty slice.
func BuildDailySummaries(records []FoodRecord, targets MacroTargets, now time.Time) []DaySummary {
	buckets := map[string]*DaySummary{}
	var order []string

	for _, rec := range records {
		label := utils.FormatRelativeDate(rec.CreatedAt, now)
		b, ok := buckets[label]
		if !ok {
			b = &DaySummary{Label: label, Date: bucketDate(rec.CreatedAt)}
			buckets[label] = b
			order = append(order, label)
		}
		b.Records = append(b.Records, rec)
	}

	out := make([]DaySummary, 0, len(order))
	for _, label := range order {
		b := buckets[label]

		sort.SliceStable(b.Records, func(i, j int) bool {
			ri, rj := b.Records[i], b.Records[j]
			if !ri.CreatedAt.Equal(rj.CreatedAt) {
				return ri.CreatedAt.After(rj.CreatedAt)
			}
			return ri.Name < rj.Name
		})

		for _, rec := range b.Records {
			b.Totals.Calories += rec.Calories
			b.Totals.Carbs += rec.Carbs
			b.Totals.Fat += rec.Fat
			b.Totals.Protein += rec.Protein
		}
		b.Percentages = MacroPercentages{
			Calories: percentOfTarget(b.Totals.Calories, targets.Calories),
			Carbs:    percentOfTarget(b.Totals.Carbs, targets.Carbs),
			Fat:      percentOfTarget(b.Totals.Fat, targets.Fat),
			Protein:  percentOfTarget(b.Totals.Protein, targets.Protein),
		}
		out = append(out, *b)
	}

	// Recency-first display must not depend on upstream query order.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

// FlattenRecords turns the nested capture history into the flat record
// list the pipeline works on.
func FlattenRecords(images []models.Image) []FoodRecord {
	var records []FoodRecord
	for _, img := range images {
		for _, item := range img.FoodItems {
			records = append(records, FoodRecord{
				ID:        item.ID,
				Name:      item.Name,
				Calories:  item.Calories,
				Carbs:     item.Carbs,
				Fat:       item.Fat,
				Protein:   item.Protein,
				CreatedAt: item.CreatedAt,
			})
		}
	}
	return records
}

func percentOfTarget(total float64, target *float64) *float64 {
	if target == nil || *target <= 0 {
		return nil
	}
	v := round2(total / (*target / 100))
	return &v
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func bucketDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
