// internal/workers/listing/classify-images/models.go
package classifyimages

import "listing-matcher/internal/models"

// ImageInput is one uploaded image. Data travels base64-encoded in job variables.
type ImageInput struct {
	Filename string `json:"filename" validate:"required"`
	Data     []byte `json:"data"`
}

type Input struct {
	Images []ImageInput `json:"images" validate:"dive"`
}

// Output keeps every list in input order; downstream slot assignment depends on it.
type Output struct {
	Counts      models.CategoryCounts         `json:"counts"`
	Records     []models.ClassificationRecord `json:"records"`
	HouseFiles  []string                      `json:"houseFiles"`
	LogoFiles   []string                      `json:"logoFiles"`
	PersonFiles []string                      `json:"personFiles"`
}

// Failures returns the records whose classification failed.
func (o *Output) Failures() []models.ClassificationRecord {
	var out []models.ClassificationRecord
	for _, r := range o.Records {
		if r.Failed() {
			out = append(out, r)
		}
	}
	return out
}
