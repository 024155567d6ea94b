package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/cepalab/signguard/migrations"
	"github.com/cepalab/signguard/modules/twofactor"
	"github.com/cepalab/signguard/pkg/audit"
	"github.com/cepalab/signguard/pkg/clientip"
	"github.com/cepalab/signguard/pkg/config"
	"github.com/cepalab/signguard/pkg/email"
	"github.com/cepalab/signguard/pkg/httpserver"
	"github.com/cepalab/signguard/pkg/jwt"
	"github.com/cepalab/signguard/pkg/logger"
	"github.com/cepalab/signguard/pkg/metrics"
	"github.com/cepalab/signguard/pkg/pg"
	"github.com/cepalab/signguard/pkg/ratelimiter"
	"github.com/cepalab/signguard/pkg/redis"
	"github.com/cepalab/signguard/pkg/requestid"
	"github.com/cepalab/signguard/pkg/secrets"
	"github.com/cepalab/signguard/svc/backupcode"
	"github.com/cepalab/signguard/svc/challenge"
	"github.com/cepalab/signguard/svc/enrollment"
	"github.com/cepalab/signguard/svc/signature"
)

const healthTimeout = 3 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg Config
	config.MustLoad(&cfg)

	log := logger.New(
		logger.WithEnvironment(cfg.Env.Environment(), cfg.AppName),
		logger.WithConfig(cfg.Log),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	slog.SetDefault(log)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Service stopped with error", logger.Error(err))
		os.Exit(1)
	}
	log.Info("Service stopped")
}

func run(ctx context.Context, cfg Config, log *slog.Logger) error {
	keyring, err := secrets.ParseKeyring(cfg.MasterKey)
	if err != nil {
		return err
	}
	pepper, err := keyring.Derive("backup-codes")
	if err != nil {
		return err
	}
	authKey, err := keyring.Derive("signature-authorization")
	if err != nil {
		return err
	}

	tokens, err := jwt.NewFromConfig(cfg.Auth)
	if err != nil {
		return err
	}

	policy, err := cfg.Signature.Policy()
	if err != nil {
		return err
	}

	db, err := pg.Connect(ctx, cfg.DB)
	if err != nil {
		log.Error("Failed to connect to database", logger.Component("database"), logger.Error(err))
		return err
	}
	defer db.Close()

	if err := pg.MigrateFS(ctx, db, migrations.FS, cfg.DB, log.With(logger.Component("database.migration"))); err != nil {
		log.Error("Failed to migrate database", logger.Component("database.migration"), logger.Error(err))
		return err
	}

	checks := map[string]httpserver.CheckFunc{"postgres": pg.Healthcheck(db)}

	var (
		claims     signature.Claims
		limitStore ratelimiter.Store
	)
	if cfg.Redis.Enabled() {
		var client *goredis.Client
		if client, err = redis.Connect(ctx, cfg.Redis); err != nil {
			log.Error("Failed to connect to redis", logger.Component("redis"), logger.Error(err))
			return err
		}
		defer client.Close()

		claims = signature.NewRedisClaims(client, cfg.Redis.KeyPrefix)
		limitStore = ratelimiter.NewRedisStore(client, redis.Key(cfg.Redis.KeyPrefix, "ratelimit"))
		checks["redis"] = redis.Healthcheck(client)
	} else {
		log.Warn("Redis is not configured, single-use claims and rate limits are kept in memory")
		claims = signature.NewMemoryClaims(nil)
		memStore := ratelimiter.NewMemoryStore()
		defer memStore.Close()
		limitStore = memStore
	}

	limiter, err := ratelimiter.NewBucket(limitStore, cfg.RateLimit)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	auditLog := audit.NewLogger(audit.NewPgStorage(db),
		audit.WithAsync(audit.AsyncOptions{
			BatchSize:      50,
			BatchTimeout:   time.Second,
			StorageTimeout: 5 * time.Second,
			Retries:        3,
			Logger:         log.With(logger.Component("audit")),
		}),
		audit.WithRequestIDExtractor(requestid.FromContextOK),
		audit.WithIPExtractor(clientip.IPFromContextOK),
		audit.WithUserAgentExtractor(clientip.UserAgentFromContextOK),
	)
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := auditLog.Close(flushCtx); err != nil {
			log.Error("Failed to flush audit log", logger.Component("audit"), logger.Error(err))
		}
	}()

	sender, err := email.NewSender(cfg.Email)
	if err != nil {
		return err
	}

	backup := backupcode.NewService(backupcode.NewPgStorage(db), pepper,
		backupcode.WithLogger(log.With(logger.Component("backupcode"))),
	)
	enr := enrollment.NewService(enrollment.NewPgStorage(db), keyring, backup,
		enrollment.NewProvisioner(cfg.Issuer, twofactor.ClaimsAccounts),
		enrollment.WithNotifier(enrollment.NewEmailNotifier(sender, twofactor.ClaimsAccounts, cfg.Issuer, cfg.Email.SupportEmail)),
		enrollment.WithAudit(auditLog),
		enrollment.WithMetrics(collector),
		enrollment.WithLogger(log.With(logger.Component("enrollment"))),
	)
	challenges := challenge.NewService(challenge.NewPgStorage(db), enr, backup,
		challenge.WithConfig(cfg.Challenge),
		challenge.WithAudit(auditLog),
		challenge.WithMetrics(collector),
		challenge.WithLogger(log.With(logger.Component("challenge"))),
	)
	signatures := signature.NewService(challenges, claims, authKey,
		signature.WithPolicy(policy),
		signature.WithAuthorizationTTL(cfg.Signature.AuthorizationTTL),
		signature.WithAudit(auditLog),
		signature.WithMetrics(collector),
		signature.WithLogger(log.With(logger.Component("signature"))),
	)

	mod := twofactor.New(tokens, enr, challenges, signatures,
		twofactor.WithActivity(auditLog),
		twofactor.WithRateLimiter(limiter),
		twofactor.WithTrustedHeaders(cfg.TrustedHeaders...),
		twofactor.WithLogger(log.With(logger.Component("http"))),
	)

	r := chi.NewRouter()
	r.Use(
		requestid.Middleware,
		clientip.Middleware(cfg.TrustedHeaders...),
		metrics.Middleware(collector),
	)
	r.Get("/health", httpserver.HealthCheckHandler(log, healthTimeout, checks))
	r.Method(http.MethodGet, "/metrics", metrics.Handler(registry))
	r.Mount("/2fa", mod.Handle())

	server := httpserver.NewFromConfig(cfg.Server, httpserver.WithLogger(log.With(logger.Component("server"))))

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return server.Run(ctx, r)
	})
	eg.Go(func() error {
		return challenges.RunSweeper(ctx, cfg.Challenge.SweepInterval)
	})

	log.Info("Service started",
		slog.String("addr", cfg.Server.Addr),
		slog.String("issuer", cfg.Issuer),
		slog.Bool("redis", cfg.Redis.Enabled()),
	)
	return eg.Wait()
}
