package pg

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

const defaultRetryInterval = time.Second

var (
	ErrEmptyConnectionString    = errors.New("pg: empty connection string, set PG_CONN_URL")
	ErrFailedToParseDBConfig    = errors.New("pg: failed to parse connection string")
	ErrFailedToOpenDBConnection = errors.New("pg: failed to open connection")
	ErrHealthcheckFailed        = errors.New("pg: database is not reachable")
	ErrFailedToApplyMigrations  = errors.New("pg: failed to apply migrations")
	ErrFailedToBeginTx          = errors.New("pg: failed to begin transaction")
	ErrNoMigrations             = errors.New("pg: no migrations filesystem")
)

// IsNotFoundError reports whether err wraps pgx.ErrNoRows.
func IsNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
