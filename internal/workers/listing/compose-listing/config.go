// internal/workers/listing/compose-listing/config.go
package composelisting

import (
	"time"

	classifyimages "listing-matcher/internal/workers/listing/classify-images"
	extractfields "listing-matcher/internal/workers/listing/extract-fields"
)

type Config struct {
	TopN     int
	Timeout  time.Duration
	Classify *classifyimages.Config
	Extract  *extractfields.Config
}

func LoadConfig() *Config {
	return &Config{
		TopN:     3,
		Timeout:  5 * time.Minute,
		Classify: classifyimages.LoadConfig(),
		Extract:  extractfields.LoadConfig(),
	}
}
