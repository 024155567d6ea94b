// Package logger builds *slog.Logger instances for the service.
//
// New picks the handler from the deployment environment (text at debug
// level in development, JSON at info level elsewhere), lets LOG_LEVEL and
// LOG_FORMAT override that, and tags every record with the service name.
// Attributes named like secrets (TOTP secrets, codes, authorization tokens)
// are replaced with "[REDACTED]" before they reach the output.
//
// ContextExtractor callbacks add request-scoped attributes such as the
// request id at Handle time:
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env.Environment(), "signguard"),
//		logger.WithConfig(cfg.Log),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "challenge resolved",
//		logger.UserID(userID),
//		logger.ChallengeID(id),
//		logger.Outcome("succeeded"),
//	)
package logger
