// Package logging provides zap logger construction and credential redaction
// helpers for connection strings, adapter errors, and query text.
package logging

import "go.uber.org/zap"

// New builds the process logger. Production config for anything that is not a
// local environment, development config (console encoder, debug level) otherwise.
func New(env string) (*zap.Logger, error) {
	if env == "local" || env == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
