// internal/workers/listing/score-templates/service.go
package scoretemplates

import (
	"fmt"
	"math"
	"sort"

	"listing-matcher/internal/common/errors"
	"listing-matcher/internal/models"
)

const (
	weightDistribution  = 3.0
	weightCountPenalty  = 2.0
	weightRealtorCompat = 2.0
	capacityRate        = 0.5
	flexibilityPerField = 0.1
	flexibilityCap      = 1.0
)

// Score computes the fit of t for the observed counts. It is pure.
func Score(counts models.CategoryCounts, t models.Template) ScoreResult {
	stats := TemplateStats{
		PropertySlots:    t.PropertyImageCount(),
		LogoSlots:        t.LogoCount(),
		RealtorPhotoSlot: t.RealtorPhotoSlot(),
		TotalImages:      t.ImageCount(),
		TextFields:       len(t.TextFields),
	}

	distribution := absInt(stats.PropertySlots-counts.PropertyImages) +
		absInt(stats.LogoSlots-counts.Logos) +
		absInt(stats.RealtorPhotoSlot-counts.RealtorPhotos)

	inputTotal := counts.Total()
	countPenalty := absInt(stats.TotalImages - inputTotal)

	var compat int
	switch {
	case counts.RealtorPhotos > 0 && stats.RealtorPhotoSlot == 0:
		compat = 2
	case counts.RealtorPhotos == 0 && stats.RealtorPhotoSlot == 1:
		compat = 1
	}

	b := Breakdown{
		Distribution:  float64(distribution),
		CountPenalty:  float64(countPenalty),
		Flexibility:   -math.Min(flexibilityPerField*float64(stats.TextFields), flexibilityCap),
		RealtorCompat: float64(compat),
		Capacity:      capacityRate * float64(maxInt(0, stats.TotalImages-inputTotal)),
	}

	total := weightDistribution*b.Distribution +
		weightCountPenalty*b.CountPenalty +
		weightRealtorCompat*b.RealtorCompat +
		b.Capacity +
		b.Flexibility

	return ScoreResult{
		TemplateID:   t.ID,
		TemplateName: t.Name,
		TotalScore:   total,
		Breakdown:    b,
		Stats:        stats,
	}
}

// Rank scores every template and orders them best first. Equal scores keep snapshot order.
func Rank(counts models.CategoryCounts, snapshot []models.Template) []ScoreResult {
	ranking := make([]ScoreResult, len(snapshot))
	for i, t := range snapshot {
		ranking[i] = Score(counts, t)
		ranking[i].Position = i
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].TotalScore < ranking[j].TotalScore
	})
	return ranking
}

// Select picks the best template from snapshot and returns it with the full ranking.
func Select(counts models.CategoryCounts, snapshot []models.Template) (models.Template, []ScoreResult, error) {
	if len(snapshot) == 0 {
		return models.Template{}, nil, errors.NewStoreUnavailableError(fmt.Errorf("template catalog is empty"))
	}

	ranking := Rank(counts, snapshot)
	chosen := snapshot[ranking[0].Position]
	if len(chosen.TextFields) == 0 {
		return models.Template{}, ranking, errors.NewSelectionError(chosen.ID, "template defines no text fields")
	}
	return chosen, ranking, nil
}

// TopN returns at most n leading entries of ranking. n <= 0 returns all of them.
func TopN(ranking []ScoreResult, n int) []ScoreResult {
	if n <= 0 || n >= len(ranking) {
		return ranking
	}
	return ranking[:n]
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
