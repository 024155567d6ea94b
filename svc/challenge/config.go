package challenge

import "time"

// Config holds challenge settings.
type Config struct {
	TTL           time.Duration `env:"SIGNGUARD_CHALLENGE_TTL"          envDefault:"5m"`
	MaxAttempts   int           `env:"SIGNGUARD_CHALLENGE_MAX_ATTEMPTS" envDefault:"5"`
	SweepInterval time.Duration `env:"SIGNGUARD_SWEEP_INTERVAL"         envDefault:"0"`
}

const (
	DefaultTTL         = 5 * time.Minute
	DefaultMaxAttempts = 5
)
