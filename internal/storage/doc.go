// Package storage is the persistence gateway for users and pending questions.
//
// Drivers:
//   - "sqlite": SQLite database file (modernc, pure Go)
//   - "postgres": PostgreSQL through a pgx connection pool
//   - "memory": process-local maps, for development and tests
package storage
