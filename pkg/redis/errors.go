package redis

import (
	"errors"
	"time"
)

const defaultRetryInterval = time.Second

var (
	ErrEmptyConnectionURL           = errors.New("redis: connection URL is not set")
	ErrFailedToParseRedisConnString = errors.New("redis: invalid connection URL")
	ErrRedisNotReady                = errors.New("redis: server did not answer in time")
	ErrHealthcheckFailed            = errors.New("redis: ping failed")
)
