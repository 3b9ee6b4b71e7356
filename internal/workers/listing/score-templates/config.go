// internal/workers/listing/score-templates/config.go
package scoretemplates

import "time"

type Config struct {
	TopN    int
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		TopN:    3,
		Timeout: 10 * time.Second,
	}
}
