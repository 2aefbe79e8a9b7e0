package repository

import "time"

// Option applies a configuration option to a SQLStore.
type Option func(*SQLStore)

// WithDriver selects the SQL dialect: "sqlite" or "postgres".
func WithDriver(driver string) Option {
	return func(s *SQLStore) {
		if driver != "" {
			s.driver = driver
		}
	}
}

// WithMaxOpenConns bounds the connection pool.
func WithMaxOpenConns(n int) Option {
	return func(s *SQLStore) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

// WithConnMaxLifetime recycles pooled connections after d.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(s *SQLStore) {
		if d > 0 {
			s.connMaxLifetime = d
		}
	}
}
