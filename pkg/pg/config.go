package pg

import "time"

// Config holds the pool and migration settings.
type Config struct {
	ConnectionString string        `env:"PG_CONN_URL,required"`
	MaxConns         int32         `env:"PG_MAX_CONNS"          envDefault:"10"`
	MinConns         int32         `env:"PG_MIN_CONNS"          envDefault:"2"`
	HealthCheck      time.Duration `env:"PG_HEALTHCHECK_PERIOD" envDefault:"1m"`
	MaxConnIdleTime  time.Duration `env:"PG_MAX_CONN_IDLE_TIME" envDefault:"10m"`
	MaxConnLifetime  time.Duration `env:"PG_MAX_CONN_LIFETIME"  envDefault:"30m"`

	// Connect retries with exponential backoff starting at RetryInterval.
	RetryAttempts uint64        `env:"PG_RETRY_ATTEMPTS" envDefault:"5"`
	RetryInterval time.Duration `env:"PG_RETRY_INTERVAL" envDefault:"1s"`

	MigrationsTable string `env:"PG_MIGRATIONS_TABLE" envDefault:"schema_migrations"`
}
