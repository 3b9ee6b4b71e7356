// internal/workers/listing/compose-listing/models.go
package composelisting

import (
	"listing-matcher/internal/models"
	classifyimages "listing-matcher/internal/workers/listing/classify-images"
	extractfields "listing-matcher/internal/workers/listing/extract-fields"
	scoretemplates "listing-matcher/internal/workers/listing/score-templates"
)

// Input is one listing request. Images keep the caller's order.
type Input struct {
	RequestID       string                      `json:"requestId" validate:"omitempty,uuid"`
	Text            string                      `json:"text"`
	PropertyAddress string                      `json:"propertyAddress"`
	RealtorName     string                      `json:"realtorName"`
	RealtorEmail    string                      `json:"realtorEmail" validate:"omitempty,email"`
	Images          []classifyimages.ImageInput `json:"images" validate:"dive"`
}

type Diagnostics struct {
	RequestID       string                           `json:"request_id"`
	PerImage        []models.ClassificationRecord    `json:"per_image"`
	Counts          models.CategoryCounts            `json:"counts"`
	Ranking         []scoretemplates.ScoreResult     `json:"ranking"`
	TruncationFlags map[string]bool                  `json:"truncation_flags"`
	Truncation      []extractfields.TruncationReport `json:"truncation,omitempty"`
	UnassignedKeys  []string                         `json:"unassigned_keys,omitempty"`
	UnusedFiles     []string                         `json:"unused_files,omitempty"`
}

type Output struct {
	Assignment         map[string]*string `json:"assignment"`
	SelectedTemplateID string             `json:"selected_template_id"`
	TemplateName       string             `json:"template_name"`
	OutputFormat       string             `json:"output_format"`
	Diagnostics        Diagnostics        `json:"diagnostics"`
}
