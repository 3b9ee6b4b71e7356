// internal/workers/listing/score-templates/models.go
package scoretemplates

import "listing-matcher/internal/models"

type Input struct {
	Counts models.CategoryCounts `json:"counts"`
}

// Breakdown holds the named terms of a template score.
type Breakdown struct {
	Distribution  float64 `json:"distribution"`
	CountPenalty  float64 `json:"count_penalty"`
	Flexibility   float64 `json:"flexibility"`
	RealtorCompat float64 `json:"realtor_compat"`
	Capacity      float64 `json:"capacity"`
}

// TemplateStats are the slot counts the score was computed from.
type TemplateStats struct {
	PropertySlots    int `json:"property_slots"`
	LogoSlots        int `json:"logo_slots"`
	RealtorPhotoSlot int `json:"realtor_photo_slot"`
	TotalImages      int `json:"total_images"`
	TextFields       int `json:"text_fields"`
}

// ScoreResult ranks one template. Lower TotalScore is a better fit.
type ScoreResult struct {
	TemplateID   string        `json:"template_id"`
	TemplateName string        `json:"template_name"`
	Position     int           `json:"position"`
	TotalScore   float64       `json:"total_score"`
	Breakdown    Breakdown     `json:"breakdown"`
	Stats        TemplateStats `json:"stats"`
}

type Output struct {
	SelectedTemplateID string          `json:"selectedTemplateId"`
	TemplateName       string          `json:"templateName"`
	OutputFormat       string          `json:"outputFormat"`
	Template           models.Template `json:"template"`
	Ranking            []ScoreResult   `json:"ranking"`
}
