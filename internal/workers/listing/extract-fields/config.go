// internal/workers/listing/extract-fields/config.go
package extractfields

import "time"

type Config struct {
	MaxShorteningRounds int
	FieldConcurrency    int
	CallTimeout         time.Duration // per generator call
	Timeout             time.Duration // whole job
}

func LoadConfig() *Config {
	return &Config{
		MaxShorteningRounds: 3,
		FieldConcurrency:    4,
		CallTimeout:         30 * time.Second,
		Timeout:             3 * time.Minute,
	}
}
