// internal/models/classification.go
package models

import "encoding/json"

// Category is the bucket an image label falls into.
type Category int

const (
	CategoryOther Category = iota
	CategoryHouse
	CategoryLogo
	CategoryPerson
)

func (c Category) String() string {
	switch c {
	case CategoryHouse:
		return "house"
	case CategoryLogo:
		return "logo"
	case CategoryPerson:
		return "person"
	default:
		return "other"
	}
}

// ParseCategory maps a category name back to its value; unknown names are CategoryOther.
func ParseCategory(s string) Category {
	switch s {
	case "house":
		return CategoryHouse
	case "logo":
		return CategoryLogo
	case "person":
		return CategoryPerson
	default:
		return CategoryOther
	}
}

func (c Category) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Category) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*c = ParseCategory(s)
	return nil
}

// ClassificationRecord is the per-image result of the aggregator.
// Error is set when the tagger failed; such records never count.
type ClassificationRecord struct {
	Filename   string   `json:"filename"`
	Label      string   `json:"label,omitempty"`
	Confidence float64  `json:"score"`
	Category   Category `json:"category"`
	Error      string   `json:"error,omitempty"`
}

// Failed reports whether classification of this image failed.
func (r ClassificationRecord) Failed() bool { return r.Error != "" }

// CategoryCounts aggregates classified images per request.
type CategoryCounts struct {
	PropertyImages int `json:"property_images"`
	Logos          int `json:"logos"`
	RealtorPhotos  int `json:"realtor_photos"`
}

// Total is the number of counted images.
func (c CategoryCounts) Total() int {
	return c.PropertyImages + c.Logos + c.RealtorPhotos
}
