// internal/workers/listing/extract-fields/models.go
package extractfields

import "listing-matcher/internal/models"

type Input struct {
	Template        models.Template `json:"template"`
	Text            string          `json:"text"`
	PropertyAddress string          `json:"propertyAddress"`
}

// TruncationReport describes the shortening loop of one over-length field.
type TruncationReport struct {
	Field          string `json:"field"`
	Target         int    `json:"target"`
	OriginalLength int    `json:"original_length"`
	FinalLength    int    `json:"final_length"`
	Rounds         int    `json:"rounds"`
	StillOverLimit bool   `json:"still_over_limit"`
}

// Output maps every template text field to its value; nil means the field stays empty.
type Output struct {
	Fields          map[string]*string `json:"fields"`
	TruncationFlags map[string]bool    `json:"truncationFlags"`
	Truncation      []TruncationReport `json:"truncation,omitempty"`
}
