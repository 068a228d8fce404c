// Package logger builds the application's slog.Logger: JSON in
// production, human-readable text in development, with request-scoped
// attributes injected from context at log time.
//
//	log := logger.New(logger.WithEnvironment(env, "trestle"))
//	logger.SetAsDefault(log)
package logger
