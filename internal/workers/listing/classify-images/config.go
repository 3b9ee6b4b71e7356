// internal/workers/listing/classify-images/config.go
package classifyimages

import "time"

type Config struct {
	Concurrency int
	CallTimeout time.Duration // per tagger call
	Timeout     time.Duration // whole job
}

func LoadConfig() *Config {
	return &Config{
		Concurrency: 4,
		CallTimeout: 30 * time.Second,
		Timeout:     2 * time.Minute,
	}
}
