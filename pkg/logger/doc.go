// Package logger builds slog loggers that pick up request, tenant and task
// attributes from the context of every record.
//
//	log := logger.New(
//		logger.WithEnvironment(app.Env, app.Name),
//		logger.WithLevelName(app.LogLevel),
//		logger.WithContextExtractors(
//			requestid.LoggerExtractor(),
//			tenant.LoggerExtractor(),
//			queue.LoggerExtractor(),
//		),
//	)
//	logger.SetAsDefault(log)
//
// Attribute helpers (Error, TenantID, TaskID and friends) keep key names
// consistent across packages; helpers given a nil or empty value return an
// empty Attr that slog discards.
package logger
