package services

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ServiceIdentifier interface {
	ID() string
}

// ServiceLogger tags every event with the DI service that emitted it.
type ServiceLogger struct {
	zerolog.Logger
}

func NewServiceLogger(svc ServiceIdentifier) *ServiceLogger {
	return &ServiceLogger{Logger: log.With().Str("service", svc.ID()).Logger()}
}

// WithSignature scopes the logger to one transaction, so every line about its
// attempts can be grepped by signature.
func (l *ServiceLogger) WithSignature(signature string) *ServiceLogger {
	return &ServiceLogger{Logger: l.With().Str("signature", signature).Logger()}
}

// WithFields returns a child logger carrying the given key/value pairs.
func (l *ServiceLogger) WithFields(fields map[string]any) *ServiceLogger {
	return &ServiceLogger{Logger: l.With().Fields(fields).Logger()}
}
