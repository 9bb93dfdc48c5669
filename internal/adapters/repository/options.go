package repository

import (
	"github.com/okian/guestrank/pkg/logger"
)

// PostgresOption applies a configuration option to OpenPostgres.
type PostgresOption func(*postgresOptions)

type postgresOptions struct {
	maxConns int32
	migrate  bool
	logger   logger.Logger
}

// WithMaxConns caps the pool size.
func WithMaxConns(n int32) PostgresOption {
	return func(o *postgresOptions) {
		if n > 0 {
			o.maxConns = n
		}
	}
}

// WithMigrations toggles applying embedded migrations on open.
func WithMigrations(enabled bool) PostgresOption {
	return func(o *postgresOptions) {
		o.migrate = enabled
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) PostgresOption {
	return func(o *postgresOptions) {
		if l != nil {
			o.logger = l
		}
	}
}
