// Package logger builds the application's structured logger on log/slog:
// text output in development and staging, JSON in production, always
// tagged with the environment.
package logger
