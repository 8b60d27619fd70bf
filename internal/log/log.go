// Package log wires a single zap.Logger through the scanner's stages:
// constructed once at cmd/nsss startup and passed down through
// constructors, never reached via a package-level global.
package log

import "go.uber.org/zap"

// New builds a production logger (JSON encoding, Info level and above).
func New() (*zap.Logger, error) {
	return zap.NewProduction()
}

// Nop returns a logger that discards everything, for tests.
func Nop() *zap.Logger {
	return zap.NewNop()
}
