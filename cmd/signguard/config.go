package main

import (
	"github.com/cepalab/signguard/pkg/email"
	"github.com/cepalab/signguard/pkg/environment"
	"github.com/cepalab/signguard/pkg/httpserver"
	"github.com/cepalab/signguard/pkg/jwt"
	"github.com/cepalab/signguard/pkg/logger"
	"github.com/cepalab/signguard/pkg/pg"
	"github.com/cepalab/signguard/pkg/ratelimiter"
	"github.com/cepalab/signguard/pkg/redis"
	"github.com/cepalab/signguard/svc/challenge"
	"github.com/cepalab/signguard/svc/signature"
)

// Config is the process configuration, read from the environment.
type Config struct {
	AppName        string   `env:"APP_NAME"                    envDefault:"signguard"`
	MasterKey      string   `env:"SIGNGUARD_MASTER_KEY,required"`
	Issuer         string   `env:"SIGNGUARD_ISSUER"            envDefault:"Cepalab Juridico"`
	TrustedHeaders []string `env:"SIGNGUARD_TRUSTED_HEADERS"   envSeparator:","`

	Env       environment.Config
	Log       logger.Config
	DB        pg.Config
	Redis     redis.Config
	Server    httpserver.Config
	Email     email.Config
	Auth      jwt.Config
	RateLimit ratelimiter.Config
	Challenge challenge.Config
	Signature signature.Config
}
