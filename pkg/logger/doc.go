// Package logger builds the service's *slog.Logger.
//
// New picks a text or JSON handler and wraps it in a decorator that runs
// ContextExtractor callbacks on every record, so request-scoped values such
// as the request id and the organization id show up without being passed by
// hand:
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "dppkit"),
//	    logger.WithContextExtractors(requestid.LoggerExtractor(), org.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "decision", logger.Feature(key), logger.Rule(string(d.Rule)))
//
// The attribute helpers in attr.go keep key names stable across packages.
package logger
